// Package generator turns natural-language prompts into mini-apps.
//
// Providers:
//   - Mock: keyword templates, the default and what the feed ships with
//   - Anthropic: Claude Messages API over resty with retries and a breaker
//   - OpenAI: chat completions through go-openai with a breaker
//
// Remote providers share one system prompt and one response parser: the
// first JSON object in the reply must carry title, description, htmlContent,
// cssContent and jsContent.
package generator
