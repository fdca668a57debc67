package biz

import (
	"chatwarden/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Buffer    *usecase.BufferUsecase
	Guardrail *usecase.GuardrailUsecase
}
