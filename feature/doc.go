// Package feature binds groups of fields declared in the configuration.
//
// Each feature resolves its class and all listed fields when the Set is
// created. A layout mismatch disables only that feature; callers check
// Enabled or handle the error from Get and carry on without it. Set.Retry
// re-attempts disabled features, for example after the foreign runtime has
// loaded another module.
package feature
