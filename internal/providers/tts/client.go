// Package tts синтезирует речь через публичный эндпоинт Google Translate TTS.
//
// Эндпоинт принимает не более 100 символов за запрос, поэтому текст режется на
// фрагменты по границам слов, а полученные MP3-фрагменты склеиваются по порядку.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/magabrotheeeer/audioia/internal/config"
)

const maxChunkRunes = 100

// ErrEmptyText нечего синтезировать.
var ErrEmptyText = errors.New("tts: empty text")

// Client клиент синтеза речи.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента.
func NewClient(cfg config.TTS) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.TTSBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.TTSTimeout},
	}
}

// Synthesize озвучивает text на языке lang и возвращает MP3.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	const op = "tts.Synthesize"

	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyText)
	}

	var out bytes.Buffer
	for i, chunk := range chunks {
		if err := c.fetch(ctx, &out, chunk, lang, i, len(chunks)); err != nil {
			return nil, fmt.Errorf("%s: chunk %d/%d: %w", op, i+1, len(chunks), err)
		}
	}
	return out.Bytes(), nil
}

func (c *Client) fetch(ctx context.Context, w io.Writer, chunk, lang string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "http://translate.google.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("empty audio chunk")
	}
	return nil
}

// splitText режет текст на фрагменты не длиннее limit рун, стараясь не разрывать слова.
func splitText(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(runes) == 0 {
			continue
		}
		need := len(runes)
		if curLen > 0 {
			need++
		}
		if curLen+need > limit {
			flush()
			need = len(runes)
		}
		if curLen > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(string(runes))
		curLen += need
	}
	flush()
	return chunks
}
