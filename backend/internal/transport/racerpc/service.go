package racerpc

import (
	"context"

	"google.golang.org/grpc"

	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/world"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "race.v1.RaceControl"

// Empty пустой запрос или ответ
type Empty struct{}

type StateResponse struct {
	State game.Snapshot `json:"state"`
}

type LoadMapRequest struct {
	MapID string `json:"mapId"`
}

type MapResponse struct {
	Map maps.MapData `json:"map"`
}

type SetObstaclesRequest struct {
	Obstacles []world.Obstacle `json:"obstacles"`
}

type ListMapsResponse struct {
	Maps []maps.MapData `json:"maps"`
}

type StatsResponse struct {
	Stats stats.Stats `json:"stats"`
}

// RaceControlService серверная часть сервиса управления гонкой
type RaceControlService interface {
	GetState(ctx context.Context, req *Empty) (*StateResponse, error)
	StartCountdown(ctx context.Context, req *Empty) (*StateResponse, error)
	RestartGame(ctx context.Context, req *Empty) (*StateResponse, error)
	LoadMap(ctx context.Context, req *LoadMapRequest) (*MapResponse, error)
	SetObstacles(ctx context.Context, req *SetObstaclesRequest) (*StateResponse, error)
	ListMaps(ctx context.Context, req *Empty) (*ListMapsResponse, error)
	GetStats(ctx context.Context, req *Empty) (*StatsResponse, error)
}

// RegisterRaceControlService регистрирует реализацию сервиса
func RegisterRaceControlService(s grpc.ServiceRegistrar, srv RaceControlService) {
	s.RegisterService(&RaceControlServiceDesc, srv)
}

// RaceControlServiceDesc описание сервиса без сгенерированного кода:
// сообщения передаются кодеком msgpack
var RaceControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RaceControlService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler("GetState", RaceControlService.GetState)},
		{MethodName: "StartCountdown", Handler: unaryHandler("StartCountdown", RaceControlService.StartCountdown)},
		{MethodName: "RestartGame", Handler: unaryHandler("RestartGame", RaceControlService.RestartGame)},
		{MethodName: "LoadMap", Handler: unaryHandler("LoadMap", RaceControlService.LoadMap)},
		{MethodName: "SetObstacles", Handler: unaryHandler("SetObstacles", RaceControlService.SetObstacles)},
		{MethodName: "ListMaps", Handler: unaryHandler("ListMaps", RaceControlService.ListMaps)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", RaceControlService.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "race/v1/race_control",
}

func methodName(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler строит обработчик gRPC из метода интерфейса
func unaryHandler[Req, Resp any](method string, call func(RaceControlService, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		service := srv.(RaceControlService)
		if interceptor == nil {
			return call(service, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: methodName(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(service, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
