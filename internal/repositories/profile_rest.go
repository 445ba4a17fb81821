package repositories

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

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

type accessTokenKey struct{}

// WithAccessToken attaches the caller's session token so row-level security applies to REST calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// RESTProfileRepository implements [models.ProfileStore] against a hosted PostgREST endpoint.
type RESTProfileRepository struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	now        func() time.Time
}

// NewRESTProfileRepository creates a store for {baseURL}/rest/v1/profiles.
func NewRESTProfileRepository(baseURL, anonKey string, client *http.Client) *RESTProfileRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTProfileRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: client,
		now:        time.Now,
	}
}

// restProfile mirrors a profiles row as returned by PostgREST.
type restProfile struct {
	ID             string   `json:"id"`
	FullName       *string  `json:"full_name"`
	Email          *string  `json:"email"`
	Languages      []string `json:"languages"`
	Gender         *string  `json:"gender"`
	Age            *string  `json:"age"`
	EducationLevel *string  `json:"education_level"`
	Class          *string  `json:"class"`
	Field          *string  `json:"field"`
	Course         *string  `json:"course"`
	Domain         *string  `json:"domain"`
	Goals          []string `json:"goals"`
	LearningStyles []string `json:"learning_styles"`
	Onboarded      *bool    `json:"onboarded"`
	UpdatedAt      *string  `json:"updated_at"`
}

func (rp restProfile) toModel() *models.UserProfile {
	p := &models.UserProfile{ID: rp.ID, Languages: rp.Languages, Goals: rp.Goals, LearningStyles: rp.LearningStyles}
	p.Apply(models.ProfileUpdate{
		FullName: rp.FullName, Email: rp.Email, Gender: rp.Gender, Age: rp.Age,
		Class: rp.Class, Field: rp.Field, Course: rp.Course, Domain: rp.Domain,
		Onboarded: rp.Onboarded,
	})
	if rp.EducationLevel != nil {
		p.EducationLevel = models.EducationLevel(*rp.EducationLevel)
	}
	if rp.UpdatedAt != nil {
		p.UpdatedAt = parseTimestamp(*rp.UpdatedAt)
	}
	p.Normalize()
	return p
}

// parseTimestamp accepts timestamptz and timestamp renderings.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *RESTProfileRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")

	var rows []restProfile
	if err := r.doRequest(ctx, http.MethodGet, "/rest/v1/profiles?"+q.Encode(), nil, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, id)
	}
	return rows[0].toModel(), nil
}

func (r *RESTProfileRepository) Upsert(ctx context.Context, id string, update models.ProfileUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	}

	body := map[string]any{"id": id}
	for _, c := range profileColumns(update, r.now()) {
		if t, ok := c.value.(time.Time); ok {
			body[c.name] = t.Format(time.RFC3339Nano)
			continue
		}
		body[c.name] = c.value
	}

	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return r.doRequest(ctx, http.MethodPost, "/rest/v1/profiles?on_conflict=id", body, headers, nil)
}

// doRequest performs a PostgREST call with the anon key and, when present, the caller's token.
func (r *RESTProfileRepository) doRequest(ctx context.Context, method, endpoint string, body any, headers map[string]string, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	bearer := r.anonKey
	if token := accessToken(ctx); token != "" {
		bearer = token
	}
	req.Header.Set("apikey", r.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: profiles: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrMalformedResponse, err)
		}
	}
	return nil
}
