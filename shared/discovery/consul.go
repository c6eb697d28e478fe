package discovery

import (
	"fmt"

	capi "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registry registers services with the local Consul agent. The agent address
// comes from the standard CONSUL_HTTP_ADDR environment variable.
type Registry struct {
	client *capi.Client
	logger *zerolog.Logger
}

// NewRegistry creates a Registry connected to the local Consul agent.
func NewRegistry(logger *zerolog.Logger) (*Registry, error) {
	client, err := capi.NewClient(capi.DefaultConfig())
	if err != nil {
		return nil, err
	}

	return &Registry{
		client: client,
		logger: logger,
	}, nil
}

// Register announces a service instance with a gRPC health check and returns
// the registered service id for later deregistration.
func (r *Registry) Register(name, host string, grpcPort int) (string, error) {
	serviceID := fmt.Sprintf("%s-%s-%d", name, host, grpcPort)

	registration := &capi.AgentServiceRegistration{
		ID:      serviceID,
		Name:    name,
		Address: host,
		Port:    grpcPort,
		Check: &capi.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d", host, grpcPort),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return "", err
	}

	r.logger.Info().Str("service", name).Str("service_id", serviceID).Msg("registered with consul")

	return serviceID, nil
}

// Deregister removes a previously registered service instance.
func (r *Registry) Deregister(serviceID string) {
	if err := r.client.Agent().ServiceDeregister(serviceID); err != nil {
		r.logger.Error().Err(err).Str("service_id", serviceID).Msg("failed to deregister service")
	}
}
