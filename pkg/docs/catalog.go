// Package docs provides the curated documentation library: keyword search
// over a resource catalog, cached HTTP content fetching, and heuristic
// quality checks.
package docs

import "github.com/learnloop/mentor/pkg/models"

// DefaultCatalog returns the built-in resource catalog. Deployments extend
// or replace it through the service constructor.
func DefaultCatalog() []models.Resource {
	return []models.Resource{
		{
			ID:         "go-tour",
			Title:      "A Tour of Go",
			URL:        "https://go.dev/tour/welcome/1",
			Topics:     []string{"basics", "syntax", "types", "flow control"},
			Kind:       "tutorial",
			SkillLevel: models.SkillBeginner,
			Summary:    "Interactive introduction to the language, from hello world through methods and interfaces.",
		},
		{
			ID:         "effective-go",
			Title:      "Effective Go",
			URL:        "https://go.dev/doc/effective_go",
			Topics:     []string{"idioms", "style", "naming", "interfaces", "concurrency"},
			Kind:       "documentation",
			SkillLevel: models.SkillIntermediate,
			Summary:    "The canonical guide to writing clear, idiomatic Go.",
		},
		{
			ID:         "go-by-example-goroutines",
			Title:      "Go by Example: Goroutines",
			URL:        "https://gobyexample.com/goroutines",
			Topics:     []string{"goroutines", "concurrency"},
			Kind:       "tutorial",
			SkillLevel: models.SkillBeginner,
			Summary:    "Annotated example programs showing goroutine basics.",
		},
		{
			ID:         "go-by-example-channels",
			Title:      "Go by Example: Channels",
			URL:        "https://gobyexample.com/channels",
			Topics:     []string{"channels", "concurrency", "goroutines"},
			Kind:       "tutorial",
			SkillLevel: models.SkillBeginner,
			Summary:    "Channel send, receive, buffering, and direction by example.",
		},
		{
			ID:         "blog-slices-intro",
			Title:      "Go Slices: usage and internals",
			URL:        "https://go.dev/blog/slices-intro",
			Topics:     []string{"slices", "arrays", "memory"},
			Kind:       "article",
			SkillLevel: models.SkillIntermediate,
			Summary:    "How slices are represented and what append really does.",
		},
		{
			ID:         "blog-maps",
			Title:      "Go maps in action",
			URL:        "https://go.dev/blog/maps",
			Topics:     []string{"maps", "data structures"},
			Kind:       "article",
			SkillLevel: models.SkillBeginner,
			Summary:    "Declaring, reading, writing, and iterating maps, with concurrency caveats.",
		},
		{
			ID:         "blog-error-handling",
			Title:      "Error handling and Go",
			URL:        "https://go.dev/blog/error-handling-and-go",
			Topics:     []string{"errors", "error handling", "idioms"},
			Kind:       "article",
			SkillLevel: models.SkillIntermediate,
			Summary:    "The error interface and patterns for robust error handling.",
		},
		{
			ID:         "blog-errors-are-values",
			Title:      "Errors are values",
			URL:        "https://go.dev/blog/errors-are-values",
			Topics:     []string{"errors", "error handling", "design"},
			Kind:       "article",
			SkillLevel: models.SkillAdvanced,
			Summary:    "Programming with errors instead of merely checking them.",
		},
		{
			ID:         "blog-pipelines",
			Title:      "Go Concurrency Patterns: Pipelines and cancellation",
			URL:        "https://go.dev/blog/pipelines",
			Topics:     []string{"concurrency", "channels", "pipelines", "cancellation"},
			Kind:       "article",
			SkillLevel: models.SkillAdvanced,
			Summary:    "Building streaming pipelines with explicit cancellation.",
		},
		{
			ID:         "blog-context",
			Title:      "Go Concurrency Patterns: Context",
			URL:        "https://go.dev/blog/context",
			Topics:     []string{"context", "cancellation", "concurrency"},
			Kind:       "article",
			SkillLevel: models.SkillAdvanced,
			Summary:    "Propagating deadlines and cancellation across API boundaries.",
		},
		{
			ID:         "doc-testing",
			Title:      "Package testing",
			URL:        "https://pkg.go.dev/testing",
			Topics:     []string{"testing", "benchmarks", "tooling"},
			Kind:       "documentation",
			SkillLevel: models.SkillIntermediate,
			Summary:    "Reference for the standard testing package, table tests, and benchmarks.",
		},
		{
			ID:         "doc-net-http",
			Title:      "Package net/http",
			URL:        "https://pkg.go.dev/net/http",
			Topics:     []string{"http", "web", "servers", "networking"},
			Kind:       "documentation",
			SkillLevel: models.SkillIntermediate,
			Summary:    "Reference for HTTP clients and servers in the standard library.",
		},
		{
			ID:         "blog-generics-intro",
			Title:      "An Introduction To Generics",
			URL:        "https://go.dev/blog/intro-generics",
			Topics:     []string{"generics", "type parameters", "types"},
			Kind:       "article",
			SkillLevel: models.SkillAdvanced,
			Summary:    "Type parameters, constraints, and when to reach for them.",
		},
		{
			ID:         "doc-modules",
			Title:      "Go Modules Reference",
			URL:        "https://go.dev/ref/mod",
			Topics:     []string{"modules", "dependencies", "tooling"},
			Kind:       "documentation",
			SkillLevel: models.SkillIntermediate,
			Summary:    "How module paths, versions, and the go command fit together.",
		},
		{
			ID:         "blog-defer-panic-recover",
			Title:      "Defer, Panic, and Recover",
			URL:        "https://go.dev/blog/defer-panic-and-recover",
			Topics:     []string{"defer", "panic", "error handling", "flow control"},
			Kind:       "article",
			SkillLevel: models.SkillBeginner,
			Summary:    "Control flow of deferred calls and panic recovery.",
		},
		{
			ID:         "video-concurrency-patterns",
			Title:      "Go Concurrency Patterns (Rob Pike)",
			URL:        "https://www.youtube.com/watch?v=f6kdp27TYZs",
			Topics:     []string{"concurrency", "goroutines", "channels", "select"},
			Kind:       "video",
			SkillLevel: models.SkillIntermediate,
			Summary:    "Talk walking through generator, fan-in, and timeout patterns.",
		},
	}
}
