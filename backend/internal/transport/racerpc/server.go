package racerpc

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horse-race/backend/internal/core/port/in/racecontrol"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
)

// Server реализует RaceControlService поверх сервиса гонки
type Server struct {
	race   racecontrol.Port
	logger *log.Logger
}

var _ RaceControlService = (*Server)(nil)

// NewServer создает gRPC обработчик управления гонкой
func NewServer(race racecontrol.Port, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{race: race, logger: logger}
}

// NewGRPCServer создает gRPC сервер с зарегистрированным сервисом и журналированием вызовов
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(srv.loggingInterceptor))
	s := grpc.NewServer(opts...)
	RegisterRaceControlService(s, srv)
	return s
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Printf("[RaceControl] %s ошибка за %v: %v", info.FullMethod, time.Since(start), err)
	} else {
		s.logger.Printf("[RaceControl] %s выполнен за %v", info.FullMethod, time.Since(start))
	}
	return resp, err
}

func (s *Server) GetState(_ context.Context, _ *Empty) (*StateResponse, error) {
	return &StateResponse{State: s.race.Snapshot()}, nil
}

func (s *Server) StartCountdown(_ context.Context, _ *Empty) (*StateResponse, error) {
	s.race.StartCountdown()
	return &StateResponse{State: s.race.Snapshot()}, nil
}

func (s *Server) RestartGame(_ context.Context, _ *Empty) (*StateResponse, error) {
	s.race.RestartGame()
	return &StateResponse{State: s.race.Snapshot()}, nil
}

func (s *Server) LoadMap(ctx context.Context, req *LoadMapRequest) (*MapResponse, error) {
	if req.MapID == "" {
		return nil, status.Error(codes.InvalidArgument, "не указан id карты")
	}
	m, err := s.race.LoadMap(ctx, req.MapID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MapResponse{Map: m}, nil
}

func (s *Server) SetObstacles(_ context.Context, req *SetObstaclesRequest) (*StateResponse, error) {
	if err := s.race.SetObstacles(req.Obstacles); err != nil {
		return nil, toStatus(err)
	}
	return &StateResponse{State: s.race.Snapshot()}, nil
}

func (s *Server) ListMaps(ctx context.Context, _ *Empty) (*ListMapsResponse, error) {
	all, err := s.race.ListMaps(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListMapsResponse{Maps: all}, nil
}

func (s *Server) GetStats(_ context.Context, _ *Empty) (*StatsResponse, error) {
	return &StatsResponse{Stats: s.race.Stats()}, nil
}

// toStatus переводит ошибки домена в коды gRPC
func toStatus(err error) error {
	switch {
	case errors.Is(err, maps.ErrMapNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, maps.ErrInvalidMap),
		errors.Is(err, game.ErrMissingObstacles),
		errors.Is(err, game.ErrInvalidPosition),
		errors.Is(err, game.ErrInvalidStatus),
		errors.Is(err, game.ErrInvalidHorseCount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
