// Package workspace removes the Karma test target from the Angular workspace
// configuration. The schema is classified once per run from the framework
// version; only the structured angular.json layout is edited automatically.
package workspace
