package api

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ProductionServiceName - имя сервиса в gRPC health check
const ProductionServiceName = "wheatflow.production"

// HealthServer - gRPC health check для балансировщиков и оркестратора
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus(ProductionServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{grpc: grpcServer, health: hs}
}

func (s *HealthServer) Server() *grpc.Server {
	return s.grpc
}

// SetServing переключает статус сервиса производства
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ProductionServiceName, status)
	s.health.SetServingStatus("", status)
}

// Stop переводит сервис в NOT_SERVING и дожидается завершения запросов
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
