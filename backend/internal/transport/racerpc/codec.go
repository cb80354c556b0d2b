package racerpc

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

// CodecName подтип content-type, под которым зарегистрирован кодек
const CodecName = "msgpack"

// msgpackCodec кодек gRPC сообщений в msgpack.
// Имена полей берутся из json-тегов, поэтому структуры домена передаются без отдельных DTO.
type msgpackCodec struct{}

func init() {
	encoding.RegisterCodec(msgpackCodec{})
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("msgpack decode %T: %w", v, err)
	}
	return nil
}

func (msgpackCodec) Name() string {
	return CodecName
}
