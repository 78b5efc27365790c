package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goccy/go-json"
	"github.com/goliatone/go-entitycache/model"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// DefaultIndexName is the index holding project documents.
const DefaultIndexName = "projects"

// ErrNoDocumentSource is returned when documents are requested by id before
// a DocumentSource was attached.
var ErrNoDocumentSource = errors.New("search: no document source configured")

// DocumentSource loads the joined project records documents are built from.
// Projects that no longer exist are omitted from the result.
type DocumentSource interface {
	Documents(ctx context.Context, ids []string) ([]model.ProjectDetails, error)
}

// Settings configure ranking and filtering of the index.
type Settings struct {
	FilterableAttributes []string `json:"filterableAttributes"`
	SortableAttributes   []string `json:"sortableAttributes"`
	RankingRules         []string `json:"rankingRules"`
	SearchableAttributes []string `json:"searchableAttributes"`
}

// DefaultSettings returns the settings used for the projects index.
func DefaultSettings() Settings {
	return Settings{
		FilterableAttributes: []string{"categories", "loaders", "type", "gameVersions", "openSource", "clientSide", "serverSide"},
		SortableAttributes:   []string{"downloads", "followers", "dateUpdated", "datePublished"},
		RankingRules:         []string{"sort", "words", "typo", "proximity", "attribute"},
		SearchableAttributes: []string{"name", "slug", "summary", "author"},
	}
}

// APIError is an error response returned by the search server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("search: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("search: status %d: %s (%s)", e.Status, e.Message, e.Code)
}

// MeiliConfig configures a MeiliIndex.
type MeiliConfig struct {
	URL     string
	APIKey  string
	Index   string
	CDNURL  string
	Timeout time.Duration
}

// Validate implements validation.Validatable.
func (c MeiliConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.CDNURL, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// MeiliIndex is an Index backed by the Meilisearch HTTP API.
type MeiliIndex struct {
	client *resty.Client
	index  string
	cdnURL string
	source DocumentSource
	logger *zap.Logger
}

// NewMeiliIndex creates a client for the index named in cfg.
func NewMeiliIndex(cfg MeiliConfig, logger *zap.Logger) (*MeiliIndex, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	index := cfg.Index
	if index == "" {
		index = DefaultIndexName
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &MeiliIndex{
		client: client,
		index:  index,
		cdnURL: cfg.CDNURL,
		logger: logger.Named("meili").With(zap.String("index", index)),
	}, nil
}

var _ Index = (*MeiliIndex)(nil)

// UseDocuments attaches the source documents are loaded from. It is set after
// construction because the source usually depends on the index itself.
func (m *MeiliIndex) UseDocuments(src DocumentSource) {
	m.source = src
}

// AddDocuments loads, formats and adds the indexable projects in ids.
func (m *MeiliIndex) AddDocuments(ctx context.Context, ids []string) error {
	docs, err := m.documents(ctx, ids)
	if err != nil {
		return err
	}
	return m.PutDocuments(ctx, docs)
}

// UpdateDocuments loads and partially updates the indexable projects in ids.
func (m *MeiliIndex) UpdateDocuments(ctx context.Context, ids []string) error {
	docs, err := m.documents(ctx, ids)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	return m.send(ctx, http.MethodPut, m.path("/documents"), docs)
}

// RemoveDocuments deletes ids from the index.
func (m *MeiliIndex) RemoveDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.send(ctx, http.MethodPost, m.path("/documents/delete-batch"), ids)
}

// PutDocuments adds or replaces already formatted documents.
func (m *MeiliIndex) PutDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	return m.send(ctx, http.MethodPost, m.path("/documents"), docs)
}

// ClearDocuments deletes every document in the index.
func (m *MeiliIndex) ClearDocuments(ctx context.Context) error {
	return m.send(ctx, http.MethodDelete, m.path("/documents"), nil)
}

// ApplySettings updates filterable, sortable, ranking and searchable
// attributes.
func (m *MeiliIndex) ApplySettings(ctx context.Context, settings Settings) error {
	return m.send(ctx, http.MethodPatch, m.path("/settings"), settings)
}

// Close releases idle connections.
func (m *MeiliIndex) Close() error {
	return m.client.Close()
}

func (m *MeiliIndex) documents(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if m.source == nil {
		return nil, ErrNoDocumentSource
	}

	projects, err := m.source.Documents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search: load documents: %w", err)
	}

	docs := make([]Document, 0, len(projects))
	for _, p := range projects {
		if StateOf(p.Visibility, p.Status) != Indexable {
			continue
		}
		docs = append(docs, FormatDocument(p, m.cdnURL))
	}
	return docs, nil
}

func (m *MeiliIndex) path(suffix string) string {
	return "/indexes/" + m.index + suffix
}

func (m *MeiliIndex) send(ctx context.Context, method, path string, body any) error {
	req := m.client.R().SetContext(ctx)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("search: encode %s %s: %w", method, path, err)
		}
		req.SetBody(payload)
	}

	var apiErr APIError
	req.SetError(&apiErr)

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("search: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(apiErr.Status)
		}
		return &apiErr
	}

	m.logger.Debug("search request accepted", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode()))
	return nil
}
