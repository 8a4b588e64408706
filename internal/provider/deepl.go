package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepLTranslator translates batched subtitle text using the DeepL API.
// DeepL has no prompt channel, so the marker lines of the batch are sent
// as a single text and DeepL's formatting preservation keeps them intact.
type DeepLTranslator struct {
	apiKey     string
	httpClient *http.Client
}

func NewDeepLTranslator(apiKey string) *DeepLTranslator {
	return &DeepLTranslator{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}
}

func (d *DeepLTranslator) Name() string {
	return "deepl"
}

func (d *DeepLTranslator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("DeepL API key not configured")
	}
	if req.Text == "" {
		return "", fmt.Errorf("deepl: empty translation input")
	}

	form := url.Values{}
	form.Add("text", req.Text)
	form.Set("target_lang", deeplLangCode(req.TargetLanguage))
	form.Set("preserve_formatting", "1")
	if req.SourceLanguage != "" && req.SourceLanguage != "auto" {
		form.Set("source_lang", deeplLangCode(req.SourceLanguage))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", deeplAPIURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(d.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpError(d.Name(), resp.StatusCode, body)
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("empty DeepL response")
	}

	return deeplResp.Translations[0].Text, nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format.
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"bn": "BN",
		"en": "EN",
		"hi": "HI",
		"ar": "AR",
		"es": "ES",
		"fr": "FR",
		"de": "DE",
		"pt": "PT-BR",
		"ru": "RU",
		"ja": "JA",
		"ko": "KO",
		"zh": "ZH",
	}
	if mapped, ok := mapping[code]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
