package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ngjest/internal/registry"
)

func TestParseTokenSource(testInstance *testing.T) {
	testCases := []struct {
		name           string
		value          string
		expectedSource registry.TokenSourceConfiguration
		expectError    bool
	}{
		{
			name:           "bare_environment_name",
			value:          "NPM_TOKEN",
			expectedSource: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeEnvironment, Reference: "NPM_TOKEN"},
		},
		{
			name:           "environment_prefix",
			value:          " env: NODE_AUTH_TOKEN ",
			expectedSource: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeEnvironment, Reference: "NODE_AUTH_TOKEN"},
		},
		{
			name:           "file_prefix",
			value:          "FILE:/run/secrets/npm",
			expectedSource: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeFile, Reference: "/run/secrets/npm"},
		},
		{name: "empty", value: "  ", expectError: true},
		{name: "environment_without_name", value: "env:", expectError: true},
		{name: "file_without_path", value: "file: ", expectError: true},
		{name: "unsupported_type", value: "vault:npm", expectError: true},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			source, parseError := registry.ParseTokenSource(testCase.value)
			if testCase.expectError {
				require.Error(testingInstance, parseError)
				return
			}
			require.NoError(testingInstance, parseError)
			require.Equal(testingInstance, testCase.expectedSource, source)
		})
	}
}

func TestTokenResolverResolvesSources(testInstance *testing.T) {
	environment := map[string]string{"NPM_TOKEN": " token-from-env ", "EMPTY_TOKEN": "  "}
	files := map[string]string{"/secrets/npm": "token-from-file\n", "/secrets/empty": "\n"}

	resolver := registry.NewTokenResolver(
		func(key string) (string, bool) {
			value, found := environment[key]
			return value, found
		},
		func(path string) ([]byte, error) {
			contents, found := files[path]
			if !found {
				return nil, errors.New("missing file")
			}
			return []byte(contents), nil
		},
	)

	testCases := []struct {
		name          string
		source        registry.TokenSourceConfiguration
		expectedToken string
		expectError   bool
	}{
		{name: "environment", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeEnvironment, Reference: "NPM_TOKEN"}, expectedToken: "token-from-env"},
		{name: "environment_missing", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeEnvironment, Reference: "ABSENT"}, expectError: true},
		{name: "environment_blank", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeEnvironment, Reference: "EMPTY_TOKEN"}, expectError: true},
		{name: "file", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeFile, Reference: "/secrets/npm"}, expectedToken: "token-from-file"},
		{name: "file_empty", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeFile, Reference: "/secrets/empty"}, expectError: true},
		{name: "file_missing", source: registry.TokenSourceConfiguration{Type: registry.TokenSourceTypeFile, Reference: "/secrets/absent"}, expectError: true},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			token, resolveError := resolver.ResolveToken(context.Background(), testCase.source)
			if testCase.expectError {
				require.Error(testingInstance, resolveError)
				return
			}
			require.NoError(testingInstance, resolveError)
			require.Equal(testingInstance, testCase.expectedToken, token)
		})
	}
}
