package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func TestAssistantChat(t *testing.T) {
	client := &fakeLLM{answer: "Bonjour !"}
	svc := NewAssistantService(client)

	reply, err := svc.Chat(context.Background(), "Salut", "")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour !", reply.Response)
	assert.NotEmpty(t, reply.ConversationID)
	assert.Equal(t, "Salut", client.prompt)

	reply, err = svc.Chat(context.Background(), "Encore", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", reply.ConversationID)
}

func TestAssistantChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want appErrors.Code
	}{
		{"timeout", fmt.Errorf("%w: deadline", llm.ErrTimeout), appErrors.CodeDeadlineExceeded},
		{"unavailable", fmt.Errorf("%w: refused", llm.ErrUnavailable), appErrors.CodeUnavailable},
		{"other", errors.New("500 from model"), appErrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssistantService(&fakeLLM{err: tt.err}).Chat(context.Background(), "hi", "")
			assert.Equal(t, tt.want, appErrors.CodeOf(err))
		})
	}

	_, err := NewAssistantService(&fakeLLM{err: llm.ErrUnavailable}).Chat(context.Background(), "hi", "")
	assert.ErrorIs(t, err, appErrors.ErrAssistantUnavailable)
	assert.ErrorIs(t, err, llm.ErrUnavailable)

	_, err = NewAssistantService(&fakeLLM{}).Chat(context.Background(), "  ", "")
	assert.ErrorIs(t, err, appErrors.ErrEmptyMessage)
}
