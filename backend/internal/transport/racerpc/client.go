package racerpc

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/world"
)

// Client клиент сервиса управления гонкой
type Client struct {
	conn *grpc.ClientConn
}

// NewClient создает клиент. Соединение устанавливается при первом вызове.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close закрывает соединение с сервером
func (c *Client) Close() {
	if err := c.conn.Close(); err != nil {
		log.Printf("[RaceControl] Ошибка при закрытии соединения: %v", err)
	}
}

func (c *Client) GetState(ctx context.Context) (game.Snapshot, error) {
	var resp StateResponse
	if err := c.conn.Invoke(ctx, methodName("GetState"), &Empty{}, &resp); err != nil {
		return game.Snapshot{}, err
	}
	return resp.State, nil
}

func (c *Client) StartCountdown(ctx context.Context) (game.Snapshot, error) {
	var resp StateResponse
	if err := c.conn.Invoke(ctx, methodName("StartCountdown"), &Empty{}, &resp); err != nil {
		return game.Snapshot{}, err
	}
	return resp.State, nil
}

func (c *Client) RestartGame(ctx context.Context) (game.Snapshot, error) {
	var resp StateResponse
	if err := c.conn.Invoke(ctx, methodName("RestartGame"), &Empty{}, &resp); err != nil {
		return game.Snapshot{}, err
	}
	return resp.State, nil
}

func (c *Client) LoadMap(ctx context.Context, id string) (maps.MapData, error) {
	var resp MapResponse
	if err := c.conn.Invoke(ctx, methodName("LoadMap"), &LoadMapRequest{MapID: id}, &resp); err != nil {
		return maps.MapData{}, err
	}
	return resp.Map, nil
}

func (c *Client) SetObstacles(ctx context.Context, obstacles []world.Obstacle) (game.Snapshot, error) {
	var resp StateResponse
	if err := c.conn.Invoke(ctx, methodName("SetObstacles"), &SetObstaclesRequest{Obstacles: obstacles}, &resp); err != nil {
		return game.Snapshot{}, err
	}
	return resp.State, nil
}

func (c *Client) ListMaps(ctx context.Context) ([]maps.MapData, error) {
	var resp ListMapsResponse
	if err := c.conn.Invoke(ctx, methodName("ListMaps"), &Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Maps, nil
}

func (c *Client) GetStats(ctx context.Context) (stats.Stats, error) {
	var resp StatsResponse
	if err := c.conn.Invoke(ctx, methodName("GetStats"), &Empty{}, &resp); err != nil {
		return stats.Stats{}, err
	}
	return resp.Stats, nil
}
