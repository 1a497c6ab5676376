// Package github is the source provider client. It authenticates as a GitHub
// App and acts on behalf of individual installations.
package github

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v69/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

const (
	maxPerPage = 100

	// The app JWT is backdated to absorb clock skew with GitHub.
	jwtBackdate = 60 * time.Second
	jwtLifetime = 10 * time.Minute

	// Cached installation tokens are dropped this long before GitHub expires them.
	tokenExpiryMargin = time.Minute

	tokenFetchTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	AppID      int64
	PrivateKey *rsa.PrivateKey
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL    string
	HTTPClient *http.Client
	Cache      TokenCache
}

// Client talks to the GitHub API.
type Client struct {
	appID      int64
	key        *rsa.PrivateKey
	baseURL    *url.URL
	httpClient *http.Client
	cache      TokenCache
	group      singleflight.Group
	now        func() time.Time
}

// LoadPrivateKey reads a PEM encoded RSA key from path.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read github private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse github private key: %w", err)
	}
	return key, nil
}

func New(cfg Config) (*Client, error) {
	if cfg.AppID == 0 || cfg.PrivateKey == nil {
		return nil, errors.New("github app id and private key are required")
	}
	c := &Client{
		appID:      cfg.AppID,
		key:        cfg.PrivateKey,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		now:        time.Now,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.cache == nil {
		c.cache = newMemoryTokenCache()
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// appJWT signs the short-lived identity GitHub requires for app endpoints.
func (c *Client) appJWT() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(c.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

func (c *Client) newAPIClient(ctx context.Context, bearer string) *gh.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer}))
	client := gh.NewClient(hc)
	if c.baseURL != nil {
		client.BaseURL = c.baseURL
	}
	return client
}

// InstallationToken returns an access token for the installation, minting a
// new one when the cached token is missing or about to expire.
func (c *Client) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	key := tokenCacheKey(installationID)
	if tok, ok, err := c.cache.Get(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("installation_id", installationID).Msg("token cache read failed")
	} else if ok {
		return tok, nil
	}

	// The fetch is shared by every caller waiting on key, so it must outlive
	// any single caller's cancellation.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()

		appToken, err := c.appJWT()
		if err != nil {
			return "", err
		}
		it, _, err := c.newAPIClient(fetchCtx, appToken).Apps.CreateInstallationToken(fetchCtx, installationID, nil)
		if err != nil {
			return "", classify(err, fmt.Sprintf("create installation token %d", installationID))
		}

		ttl := it.GetExpiresAt().Sub(c.now()) - tokenExpiryMargin
		if ttl > 0 {
			if err := c.cache.Set(fetchCtx, key, it.GetToken(), ttl); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Int64("installation_id", installationID).Msg("token cache write failed")
			}
		}
		return it.GetToken(), nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) installationClient(ctx context.Context, installationID int64) (*gh.Client, error) {
	tok, err := c.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return c.newAPIClient(ctx, tok), nil
}

// ListRepositories lists repositories the installation can access. perPage
// is clamped to 1..100.
func (c *Client) ListRepositories(ctx context.Context, installationID int64, page, perPage int) ([]model.Repository, error) {
	client, err := c.installationClient(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}

	list, _, err := client.Apps.ListRepos(ctx, &gh.ListOptions{Page: page, PerPage: perPage})
	if err != nil {
		return nil, classify(err, "list repositories")
	}

	out := make([]model.Repository, 0, len(list.Repositories))
	for _, r := range list.Repositories {
		out = append(out, toRepository(r))
	}
	return out, nil
}

// ListBranches returns up to 100 branches of a repository.
func (c *Client) ListBranches(ctx context.Context, installationID int64, repoFullName string) ([]model.Branch, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return nil, err
	}
	client, err := c.installationClient(ctx, installationID)
	if err != nil {
		return nil, err
	}

	branches, _, err := client.Repositories.ListBranches(ctx, owner, repo, &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: maxPerPage},
	})
	if err != nil {
		return nil, classify(err, "list branches of "+repoFullName)
	}

	out := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, model.Branch{
			Name:      b.GetName(),
			SHA:       b.GetCommit().GetSHA(),
			Protected: b.GetProtected(),
		})
	}
	return out, nil
}

func (c *Client) GetRepository(ctx context.Context, installationID int64, repoFullName string) (*model.Repository, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return nil, err
	}
	client, err := c.installationClient(ctx, installationID)
	if err != nil {
		return nil, err
	}

	r, _, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classify(err, "get repository "+repoFullName)
	}
	out := toRepository(r)
	return &out, nil
}

// LatestCommit returns the head commit of branch. The author is the commit
// author name, else the API user login, else model.UnknownAuthor.
func (c *Client) LatestCommit(ctx context.Context, installationID int64, repoFullName, branch string) (*model.Commit, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = model.DefaultBranch
	}
	client, err := c.installationClient(ctx, installationID)
	if err != nil {
		return nil, err
	}

	rc, _, err := client.Repositories.GetCommit(ctx, owner, repo, branch, nil)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("get latest commit of %s@%s", repoFullName, branch))
	}

	author := rc.GetCommit().GetAuthor().GetName()
	if author == "" {
		author = rc.GetAuthor().GetLogin()
	}
	if author == "" {
		author = model.UnknownAuthor
	}

	return &model.Commit{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author:  author,
	}, nil
}

func toRepository(r *gh.Repository) model.Repository {
	return model.Repository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		HTMLURL:       r.GetHTMLURL(),
		CloneURL:      r.GetCloneURL(),
	}
}

func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errs.Invalid("repository full name %q must be owner/repo", fullName)
	}
	return owner, repo, nil
}

// classify maps API errors onto the errs taxonomy. A 404 is NotFound, every
// other failure is an external dependency failure.
func classify(err error, msg string) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return errs.WrapMsg(errs.ErrNotFound, msg, err)
	}
	return errs.WrapMsg(errs.ErrExternalDependency, msg, err)
}
