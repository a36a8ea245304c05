package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the public npm registry.
	DefaultBaseURL = "https://registry.npmjs.org"
	// DefaultTimeout bounds every individual lookup.
	DefaultTimeout = 30 * time.Second

	latestPathSegmentConstant          = "latest"
	scopePrefixConstant                = "@"
	scopeSeparatorConstant             = "/"
	acceptHeaderNameConstant           = "Accept"
	acceptHeaderValueConstant          = "application/json"
	authorizationHeaderNameConstant    = "Authorization"
	bearerTokenTemplateConstant        = "Bearer %s"
	maximumResponseBytesConstant       = 4 << 20
	lookupErrorTemplateConstant        = "unable to resolve latest version of %s: %v"
	lookupErrorNoCauseTemplateConstant = "unable to resolve latest version of %s"
	unexpectedStatusTemplateConstant   = "registry responded with status %d"
	responseDecodingTemplateConstant   = "registry response decoding failed: %w"
	missingVersionMessageConstant      = "registry response did not include a version"
	emptyPackageNameMessageConstant    = "package name must be provided"
	baseURLIncompleteMessageConstant   = "scheme and host are required"
	invalidBaseURLTemplateConstant     = "registry base url %q is invalid: %w"
	tokenResolutionTemplateConstant    = "registry token resolution failed: %w"
	httpClientMissingMessageConstant   = "registry http client not configured"
	lookupStartedMessageConstant       = "Resolving latest package version"
	lookupCompletedMessageConstant     = "Resolved latest package version"
	lookupCachedMessageConstant        = "Reusing resolved package version"
	packageNameLogFieldConstant        = "package"
	versionLogFieldConstant            = "version"
	registryURLLogFieldConstant        = "registry_url"
)

// ErrHTTPClientNotConfigured indicates the resolver was constructed without an HTTP client.
var ErrHTTPClientNotConfigured = errors.New(httpClientMissingMessageConstant)

// HTTPClient issues registry requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Configuration describes how the resolver reaches the registry.
type Configuration struct {
	BaseURL     string
	Timeout     time.Duration
	TokenSource string
}

// ResolvedVersion pairs a package with its latest published version.
type ResolvedVersion struct {
	Name    string
	Version string
}

// LookupError reports that the latest version of a package could not be determined.
type LookupError struct {
	PackageName string
	Cause       error
}

// Error describes the lookup failure.
func (lookupError LookupError) Error() string {
	if lookupError.Cause == nil {
		return fmt.Sprintf(lookupErrorNoCauseTemplateConstant, lookupError.PackageName)
	}
	return fmt.Sprintf(lookupErrorTemplateConstant, lookupError.PackageName, lookupError.Cause)
}

// Unwrap exposes the underlying cause.
func (lookupError LookupError) Unwrap() error {
	return lookupError.Cause
}

// Resolver looks up latest package versions. Each package is fetched at most once per Resolver.
type Resolver struct {
	logger        *zap.Logger
	httpClient    HTTPClient
	baseURL       *url.URL
	timeout       time.Duration
	tokenSource   string
	tokenResolver TokenResolver

	tokenOnce  sync.Once
	token      string
	tokenError error

	cacheMutex sync.Mutex
	cache      map[string]ResolvedVersion
	inflight   singleflight.Group
}

// NewResolver constructs a Resolver. A nil token resolver falls back to the process environment and filesystem.
func NewResolver(logger *zap.Logger, httpClient HTTPClient, configuration Configuration, tokenResolver TokenResolver) (*Resolver, error) {
	if httpClient == nil {
		return nil, ErrHTTPClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURLValue := strings.TrimSpace(configuration.BaseURL)
	if len(baseURLValue) == 0 {
		baseURLValue = DefaultBaseURL
	}
	parsedBaseURL, parseError := url.Parse(strings.TrimRight(baseURLValue, "/"))
	if parseError == nil && (len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0) {
		parseError = errors.New(baseURLIncompleteMessageConstant)
	}
	if parseError != nil {
		return nil, fmt.Errorf(invalidBaseURLTemplateConstant, baseURLValue, parseError)
	}

	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if tokenResolver == nil {
		tokenResolver = NewTokenResolver(nil, nil)
	}

	return &Resolver{
		logger:        logger,
		httpClient:    httpClient,
		baseURL:       parsedBaseURL,
		timeout:       timeout,
		tokenSource:   strings.TrimSpace(configuration.TokenSource),
		tokenResolver: tokenResolver,
		cache:         map[string]ResolvedVersion{},
	}, nil
}

// Resolve returns the latest published version of the named package.
func (resolver *Resolver) Resolve(resolutionContext context.Context, packageName string) (ResolvedVersion, error) {
	trimmedName := strings.TrimSpace(packageName)
	if len(trimmedName) == 0 {
		return ResolvedVersion{}, LookupError{PackageName: packageName, Cause: errors.New(emptyPackageNameMessageConstant)}
	}

	if cached, found := resolver.cached(trimmedName); found {
		resolver.logger.Debug(lookupCachedMessageConstant, zap.String(packageNameLogFieldConstant, trimmedName), zap.String(versionLogFieldConstant, cached.Version))
		return cached, nil
	}

	result, lookupError, _ := resolver.inflight.Do(trimmedName, func() (any, error) {
		if cached, found := resolver.cached(trimmedName); found {
			return cached, nil
		}
		resolved, fetchError := resolver.fetch(resolutionContext, trimmedName)
		if fetchError != nil {
			return ResolvedVersion{}, LookupError{PackageName: trimmedName, Cause: fetchError}
		}
		resolver.cacheMutex.Lock()
		resolver.cache[trimmedName] = resolved
		resolver.cacheMutex.Unlock()
		return resolved, nil
	})
	if lookupError != nil {
		return ResolvedVersion{}, lookupError
	}
	return result.(ResolvedVersion), nil
}

// ResolveAll resolves every package concurrently and returns the versions in input order.
// Any failure fails the whole batch.
func (resolver *Resolver) ResolveAll(resolutionContext context.Context, packageNames []string) ([]ResolvedVersion, error) {
	resolvedVersions := make([]ResolvedVersion, len(packageNames))
	if len(packageNames) == 0 {
		return resolvedVersions, nil
	}

	lookupGroup, groupContext := errgroup.WithContext(resolutionContext)
	lookupGroup.SetLimit(len(packageNames))
	for packageIndex := range packageNames {
		lookupGroup.Go(func() error {
			resolved, resolveError := resolver.Resolve(groupContext, packageNames[packageIndex])
			if resolveError != nil {
				return resolveError
			}
			resolvedVersions[packageIndex] = resolved
			return nil
		})
	}

	if waitError := lookupGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return resolvedVersions, nil
}

func (resolver *Resolver) cached(packageName string) (ResolvedVersion, bool) {
	resolver.cacheMutex.Lock()
	defer resolver.cacheMutex.Unlock()
	cached, found := resolver.cache[packageName]
	return cached, found
}

func (resolver *Resolver) fetch(resolutionContext context.Context, packageName string) (ResolvedVersion, error) {
	token, tokenError := resolver.resolveToken(resolutionContext)
	if tokenError != nil {
		return ResolvedVersion{}, tokenError
	}

	lookupContext, cancelLookup := context.WithTimeout(resolutionContext, resolver.timeout)
	defer cancelLookup()

	lookupURL := resolver.baseURL.String() + "/" + packagePath(packageName) + "/" + latestPathSegmentConstant
	resolver.logger.Debug(lookupStartedMessageConstant, zap.String(packageNameLogFieldConstant, packageName), zap.String(registryURLLogFieldConstant, lookupURL))

	request, requestError := http.NewRequestWithContext(lookupContext, http.MethodGet, lookupURL, nil)
	if requestError != nil {
		return ResolvedVersion{}, requestError
	}
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	if len(token) > 0 {
		request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(bearerTokenTemplateConstant, token))
	}

	response, responseError := resolver.httpClient.Do(request)
	if responseError != nil {
		return ResolvedVersion{}, responseError
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maximumResponseBytesConstant))
		return ResolvedVersion{}, fmt.Errorf(unexpectedStatusTemplateConstant, response.StatusCode)
	}

	var payload struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if decodeError := json.NewDecoder(io.LimitReader(response.Body, maximumResponseBytesConstant)).Decode(&payload); decodeError != nil {
		return ResolvedVersion{}, fmt.Errorf(responseDecodingTemplateConstant, decodeError)
	}

	version := strings.TrimSpace(payload.Version)
	if len(version) == 0 {
		return ResolvedVersion{}, errors.New(missingVersionMessageConstant)
	}

	resolver.logger.Debug(lookupCompletedMessageConstant, zap.String(packageNameLogFieldConstant, packageName), zap.String(versionLogFieldConstant, version))
	return ResolvedVersion{Name: packageName, Version: version}, nil
}

func (resolver *Resolver) resolveToken(resolutionContext context.Context) (string, error) {
	if len(resolver.tokenSource) == 0 {
		return "", nil
	}
	resolver.tokenOnce.Do(func() {
		source, parseError := ParseTokenSource(resolver.tokenSource)
		if parseError != nil {
			resolver.tokenError = fmt.Errorf(tokenResolutionTemplateConstant, parseError)
			return
		}
		token, resolveError := resolver.tokenResolver.ResolveToken(resolutionContext, source)
		if resolveError != nil {
			resolver.tokenError = fmt.Errorf(tokenResolutionTemplateConstant, resolveError)
			return
		}
		resolver.token = token
	})
	return resolver.token, resolver.tokenError
}

// packagePath escapes a package name for the registry path. Scoped names keep the slash between scope and name.
func packagePath(packageName string) string {
	if strings.HasPrefix(packageName, scopePrefixConstant) {
		if scope, name, scoped := strings.Cut(packageName, scopeSeparatorConstant); scoped {
			return url.PathEscape(scope) + scopeSeparatorConstant + url.PathEscape(name)
		}
	}
	return url.PathEscape(packageName)
}
