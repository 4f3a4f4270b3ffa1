package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/registry"
)

// HandleTextQuery runs a text command or answers a question from the
// conversation's scope. A personal query never creates a store.
func (s *Service) HandleTextQuery(ctx context.Context, ev inbound.TextQuery) error {
	switch cmd := parseCommand(ev.Text); cmd {
	case cmdSwitchKnowledge, cmdSwitchPersonal:
		return s.switchMode(ctx, ev.Meta, cmd.targetMode())
	case cmdCurrentMode:
		return s.currentMode(ctx, ev.Meta)
	case cmdListFiles:
		return s.listFiles(ctx, ev.Meta)
	}

	query := strings.TrimSpace(ev.Text)
	if query == "" {
		return nil
	}
	store, mode, notice, err := s.scope(ctx, ev.Identity)
	if err != nil {
		return s.fail(ctx, ev.Meta, err)
	}
	if store == "" {
		return s.reply(ctx, ev.Meta, TextReply{Text: notice})
	}

	answer, err := s.upstream.GenerateGrounded(ctx, gemini.GroundedRequest{
		Model:             s.cfg.Model,
		Query:             query,
		Stores:            []string{store},
		Temperature:       s.cfg.Temperature,
		SystemInstruction: s.cfg.SystemPrompt,
	})
	if err != nil {
		return s.fail(ctx, ev.Meta, fmt.Errorf("grounded query: %w", err))
	}
	text := msgNoAnswer
	if strings.TrimSpace(answer) != "" {
		text = formatAnswer(answer)
	}
	return s.reply(ctx, ev.Meta, TextReply{Text: modeIndicator(mode) + " " + text})
}

// scope returns the store a question is answered from and the mode that
// picked it, or the notice to send when there is none.
func (s *Service) scope(ctx context.Context, id conversation.Identity) (string, registry.Mode, string, error) {
	mode, err := s.registry.Mode(ctx, id)
	if err != nil {
		return "", "", "", fmt.Errorf("read mode: %w", err)
	}
	if mode == registry.ModeKnowledge && s.cfg.KnowledgeBaseStore != "" {
		h, ok, err := s.registry.ResolveNamed(ctx, s.cfg.KnowledgeBaseStore)
		if err != nil {
			return "", "", "", fmt.Errorf("resolve knowledge base: %w", err)
		}
		if !ok {
			return "", "", msgKBUnavailable, nil
		}
		return h.StoreName, registry.ModeKnowledge, "", nil
	}
	h, ok, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve store: %w", err)
	}
	if !ok {
		return "", "", msgNoFiles, nil
	}
	return h.StoreName, registry.ModePersonal, "", nil
}

func (s *Service) switchMode(ctx context.Context, m inbound.Meta, mode registry.Mode) error {
	if mode == registry.ModeKnowledge && s.cfg.KnowledgeBaseStore == "" {
		return s.reply(ctx, m, TextReply{Text: msgKBDisabled})
	}
	if err := s.registry.SetMode(ctx, m.Identity, mode); err != nil {
		return s.fail(ctx, m, fmt.Errorf("set mode: %w", err))
	}
	s.logger.Info("mode switched",
		slog.String("conversation", m.Identity.Key()),
		slog.String("mode", string(mode)))
	return s.reply(ctx, m, TextReply{Text: "Switched. " + modeDescription(string(mode))})
}

func (s *Service) currentMode(ctx context.Context, m inbound.Meta) error {
	mode, err := s.registry.Mode(ctx, m.Identity)
	if err != nil {
		return s.fail(ctx, m, fmt.Errorf("read mode: %w", err))
	}
	if s.cfg.KnowledgeBaseStore == "" {
		mode = registry.ModePersonal
	}
	return s.reply(ctx, m, TextReply{Text: "Current mode. " + modeDescription(string(mode))})
}
