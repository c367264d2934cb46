// Package actions exposes the browser automation verbs (open, navigate,
// locate, click, fill, scroll, screenshot, ...) as named, parameterized
// actions dispatched through a registry. Every action validates its inputs
// first and then submits exactly one command to the executor, so the shared
// session is only ever touched on the executor's worker.
//
// Validation failures never reach the queue:
//   - a missing mandatory input returns *InvalidInputError,
//   - a present-but-unusable input (no locator strategy, unknown scroll
//     method) returns *ConfigError,
//   - a selector template that cannot be formatted returns *TemplateError.
//
// Execution failures produced inside a command come back to the caller with
// their identity preserved.
//
// A Runner threads a shared State between actions: locate stores named
// locators that later actions reference by name, and string values feed
// {key} substitution in selector templates.
//
// Usage:
//
//	runner, err := actions.NewRunner(exec, session, actions.NewState())
//	if err != nil {
//		return err
//	}
//	if _, err := runner.Execute(ctx, "open", map[string]interface{}{"url": "https://example.com"}); err != nil {
//		return err
//	}
//	_, err = runner.Execute(ctx, "click", map[string]interface{}{"role": "button", "name": "Go"})
package actions
