package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/llm"
	"github.com/contactlearncert-blip/prospection/internal/model"
)

// AssistantService exposes the AI flows. Nothing it does is persisted.
type AssistantService interface {
	EvaluateProspect(ctx context.Context, in model.EvaluateProspectInput) (*model.EvaluationResult, error)
	GeneratePersonalizedMessage(ctx context.Context, in model.GenerateMessageInput) (*model.PersonalizedMessage, error)
}

type (
	EvaluateRunner = llm.Runner[model.EvaluateProspectInput, model.EvaluationResult]
	MessageRunner  = llm.Runner[model.GenerateMessageInput, model.PersonalizedMessage]
)

type assistantServiceImpl struct {
	evaluate        EvaluateRunner
	generate        MessageRunner
	defaultOffering string
}

// NewAssistantService creates an AssistantService. defaultOffering is used
// when a message request leaves the service offering blank.
func NewAssistantService(evaluate EvaluateRunner, generate MessageRunner, defaultOffering string) AssistantService {
	return &assistantServiceImpl{evaluate: evaluate, generate: generate, defaultOffering: defaultOffering}
}

func (s *assistantServiceImpl) EvaluateProspect(ctx context.Context, in model.EvaluateProspectInput) (*model.EvaluationResult, error) {
	in.Industry = strings.TrimSpace(in.Industry)
	in.OnlinePresence = strings.TrimSpace(in.OnlinePresence)
	if in.Industry == "" || in.OnlinePresence == "" {
		return nil, fmt.Errorf("%w: industry and online presence are required", ErrInvalidInput)
	}

	out, err := s.evaluate.Run(ctx, in)
	if err != nil {
		return nil, flowError(err)
	}
	return &out, nil
}

func (s *assistantServiceImpl) GeneratePersonalizedMessage(ctx context.Context, in model.GenerateMessageInput) (*model.PersonalizedMessage, error) {
	in.ProspectName = strings.TrimSpace(in.ProspectName)
	if in.ProspectName == "" {
		return nil, fmt.Errorf("%w: prospect name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ServiceOffering) == "" {
		in.ServiceOffering = s.defaultOffering
	}

	out, err := s.generate.Run(ctx, in)
	if err != nil {
		return nil, flowError(err)
	}
	return &out, nil
}

func flowError(err error) error {
	if errors.Is(err, llm.ErrInvalidInput) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}
