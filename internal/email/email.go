// Package email は認証コードの配信を提供する。
// 配信はElastic EmailのHTTP API v2を使う（SMTPは使わない）。
// APIキー未設定の開発環境向けにログ出力のみのフォールバック実装も持つ。
package email

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender はワンタイムコードの配信先抽象。
// 配信に失敗した場合はエラーを返し、呼び出し側が発行処理ごと失敗させる。
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

const elasticAPIURL = "https://api.elasticemail.com/v2/email/send"

// ElasticSender はElastic Email HTTP API v2経由でメールを送信する。
type ElasticSender struct {
	apiKey string
	from   string
	client *http.Client
	logger *slog.Logger
}

// NewElasticSender はElasticSenderを生成する。
func NewElasticSender(apiKey, from string, logger *slog.Logger) *ElasticSender {
	return &ElasticSender{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

var _ Sender = (*ElasticSender)(nil)

// SendOTP は6桁の認証コードを記載したメールを送信する。
// コード本文はメールにのみ含め、ログには出力しない。
func (s *ElasticSender) SendOTP(ctx context.Context, to, code string) error {
	subject := "NetFrix 認証コード"
	body := fmt.Sprintf(`NetFrixをご利用いただきありがとうございます。

認証コード: %s

このコードの有効期限は10分です。
心当たりがない場合は、このメールを破棄してください。

— NetFrix`, code)

	if err := s.send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("認証コードメールの送信に失敗: %w", err)
	}

	s.logger.Info("認証コードメールを送信しました", slog.String("to", to))
	return nil
}

func (s *ElasticSender) send(ctx context.Context, to, subject, body string) error {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("from", s.from)
	params.Set("to", to)
	params.Set("subject", subject)
	params.Set("bodyText", body)
	params.Set("isTransactional", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elasticAPIURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Elastic Email APIへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Elastic Email APIエラー %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// LogSender はメールを送信せず、宛先のみをログに記録するSender実装。
// APIキーが設定されていない開発環境で使う。コード本文はログに出さない。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

var _ Sender = (*LogSender)(nil)

// SendOTP は配信をスキップし、ログのみ記録する。常に成功する。
func (l *LogSender) SendOTP(ctx context.Context, to, code string) error {
	l.logger.Info("開発モード: 認証コードメールの送信をスキップしました",
		slog.String("to", to))
	return nil
}
