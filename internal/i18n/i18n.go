package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/prompt-studio-go/internal/config"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer. Built-in messages cover en and zh;
// an optional message directory overrides them per language.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	if err := addBuiltinMessages(bundle); err != nil {
		return nil, fmt.Errorf("failed to register built-in messages: %w", err)
	}

	// Load language file overrides
	if cfg.Dir != "" {
		for _, lang := range cfg.Languages {
			path := filepath.Join(cfg.Dir, lang+".json")
			if _, err := bundle.LoadMessageFile(path); err != nil {
				return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
			}
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}
	if localizer == nil {
		return messageID
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgGreeting          = "greeting"
	MsgStreamError       = "stream_error"
	MsgStreamStopped     = "stream_stopped"
	MsgSessionNotFound   = "session_not_found"
	MsgSessionBusy       = "session_busy"
	MsgEmptyMessage      = "empty_message"
	MsgNoUserMessage     = "no_user_message"
	MsgRateLimitExceeded = "rate_limit_exceeded"
)

func addBuiltinMessages(bundle *i18n.Bundle) error {
	en := []*i18n.Message{
		{ID: MsgGreeting, Other: "Hi! Describe what you want to build and I will help you get there."},
		{ID: MsgStreamError, Other: "Something went wrong while generating the response: {{.Error}}"},
		{ID: MsgStreamStopped, Other: "Generation stopped."},
		{ID: MsgSessionNotFound, Other: "Session not found."},
		{ID: MsgSessionBusy, Other: "A response is already being generated for this session."},
		{ID: MsgEmptyMessage, Other: "Message text must not be empty."},
		{ID: MsgNoUserMessage, Other: "There is no user message to regenerate."},
		{ID: MsgRateLimitExceeded, Other: "Too many requests, please slow down."},
	}
	zh := []*i18n.Message{
		{ID: MsgGreeting, Other: "你好！描述一下你想构建什么，我来帮你实现。"},
		{ID: MsgStreamError, Other: "生成回复时出错：{{.Error}}"},
		{ID: MsgStreamStopped, Other: "已停止生成。"},
		{ID: MsgSessionNotFound, Other: "会话不存在。"},
		{ID: MsgSessionBusy, Other: "该会话正在生成回复。"},
		{ID: MsgEmptyMessage, Other: "消息内容不能为空。"},
		{ID: MsgNoUserMessage, Other: "没有可重新生成的用户消息。"},
		{ID: MsgRateLimitExceeded, Other: "请求过于频繁，请稍后再试。"},
	}

	if err := bundle.AddMessages(language.English, en...); err != nil {
		return err
	}
	return bundle.AddMessages(language.Chinese, zh...)
}
