package request_transition

import (
	"context"

	requestTransition "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_transition"
)

type RequestTransitionUseCase interface {
	Execute(ctx context.Context, req *requestTransition.Request) (*requestTransition.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
