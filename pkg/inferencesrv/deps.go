package inferencesrv

import (
	"github.com/usestring/superkart-inference/internal/config"
	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/service"
)

// Deps contains the dependencies available to custom tools.
type Deps struct {
	Service *service.Service
	Gateway *gateway.Gateway
	Config  *config.Config
}
