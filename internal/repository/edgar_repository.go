package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/pkg/logger"
	"navhunter/pkg/utils"
)

type edgarRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewEDGARRepository creates a DocumentRepository backed by the EDGAR
// full-text archive and the sec-api.io query endpoint.
func NewEDGARRepository(cfg *config.Config, log *logger.Logger) DocumentRepository {
	return &edgarRepository{
		client: &http.Client{Timeout: 20 * time.Second},
		cfg:    cfg,
		logger: log,
	}
}

func (r *edgarRepository) FetchText(ctx context.Context, docURL string) (string, error) {
	if docURL == "" {
		return "", nil
	}

	body, err := r.fetch(ctx, docURL)
	if err != nil {
		return "", err
	}

	return r.stripMarkup(body, docURL), nil
}

// fetch performs a polite GET with the identifying User-Agent EDGAR expects.
func (r *edgarRepository) fetch(ctx context.Context, docURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.SEC.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to fetch document", logger.ErrorField(err), logger.StringField("url", docURL))
		return "", fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Non-OK response fetching document",
			logger.IntField("status", resp.StatusCode),
			logger.StringField("url", docURL),
		)
		return "", fmt.Errorf("failed to fetch document, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// stripMarkup reduces a filing document to plain text. HTML documents
// go through readability first; anything it cannot parse falls back to
// a plain tag strip.
func (r *edgarRepository) stripMarkup(body, docURL string) string {
	content := body
	if doc, err := readability.NewDocument(body); err == nil {
		if extracted := doc.Content(); extracted != "" {
			content = extracted
		}
	}

	docHTML, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(content)))
	if err != nil {
		r.logger.Warn("Failed to parse document markup", logger.ErrorField(err), logger.StringField("url", docURL))
		return utils.CollapseWhitespace(content)
	}
	docHTML.Find("script,style").Remove()

	return utils.CleanToValidUTF8(utils.CollapseWhitespace(docHTML.Text()))
}

func (r *edgarRepository) FindPressRelease(ctx context.Context, detailsURL string) (string, error) {
	if detailsURL == "" {
		return "", nil
	}

	body, err := r.fetch(ctx, detailsURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse filing details page: %w", err)
	}

	base, err := url.Parse(detailsURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse details URL: %w", err)
	}

	var pressReleaseURL string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(a.Text())
		if !strings.Contains(text, "press release") && !strings.Contains(strings.ToUpper(a.Text()), "EX-99") {
			return true
		}
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		pressReleaseURL = base.ResolveReference(ref).String()
		return false
	})

	if pressReleaseURL == "" {
		return "", nil
	}

	r.logger.Info("Found press release link", logger.StringField("url", pressReleaseURL))
	return r.FetchText(ctx, pressReleaseURL)
}

type queryRequest struct {
	Query queryClause              `json:"query"`
	From  string                   `json:"from"`
	Size  string                   `json:"size"`
	Sort  []map[string]querySorter `json:"sort"`
}

type queryClause struct {
	QueryString map[string]string `json:"query_string"`
}

type querySorter struct {
	Order string `json:"order"`
}

type queryResponse struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Filings []entity.Filing `json:"filings"`
}

func (r *edgarRepository) QueryFilings(ctx context.Context, apiKey, ticker string, formTypes []string, lookback time.Duration, limit int) ([]entity.Filing, error) {
	if apiKey == "" {
		apiKey = r.cfg.SEC.APIKey
	}

	quoted := make([]string, 0, len(formTypes))
	for _, f := range formTypes {
		quoted = append(quoted, fmt.Sprintf("%q", f))
	}
	startDate := utils.TimeNowET().Add(-lookback).Format("2006-01-02")
	queryString := fmt.Sprintf("ticker:%s AND formType:(%s) AND filedAt:[%s TO *]",
		ticker, strings.Join(quoted, " OR "), startDate)

	payload := queryRequest{
		Query: queryClause{QueryString: map[string]string{"query": queryString}},
		From:  "0",
		Size:  fmt.Sprintf("%d", limit),
		Sort:  []map[string]querySorter{{"filedAt": {Order: "desc"}}},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.SEC.QueryURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-OK response from query API: %d - %s", resp.StatusCode, string(body))
	}

	var queryResp queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	r.logger.Info("Query API returned filings",
		logger.StringField("ticker", ticker),
		logger.IntField("total", queryResp.Total.Value),
		logger.IntField("returned", len(queryResp.Filings)),
	)
	return queryResp.Filings, nil
}
