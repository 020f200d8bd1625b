package pages_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	domainpages "lethe/app/internal/domain/pages"
)

func genPage() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("tar", "ls", "git", "apt", "curl", "grep", "sed", "awk"),
		gen.OneConstOf("common", "linux", "osx", "windows"),
		gen.AlphaString(),
	).Map(func(values []interface{}) domainpages.Page {
		return domainpages.Page{
			Name:     values[0].(string),
			Platform: values[1].(string),
			Markdown: values[2].(string),
		}
	})
}

// expectedContents collapses the input the way a sync does: one row per (platform, name),
// last occurrence wins.
func expectedContents(incoming []domainpages.Page) map[string]string {
	out := make(map[string]string, len(incoming))
	for _, page := range incoming {
		out[page.Platform+"/"+page.Name] = page.Markdown
	}
	return out
}

func sameContents(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if other, ok := b[key]; !ok || other != value {
			return false
		}
	}
	return true
}

func TestSyncProperties(t *testing.T) {
	repo, db, _ := setupRepository(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("storage equals the incoming set regardless of prior contents", prop.ForAll(
		func(prior, incoming []domainpages.Page) bool {
			if _, err := syncPages(repo, prior); err != nil {
				return false
			}
			if _, err := syncPages(repo, incoming); err != nil {
				return false
			}
			return sameContents(storedContents(t, db), expectedContents(incoming))
		},
		gen.SliceOf(genPage()),
		gen.SliceOf(genPage()),
	))

	properties.Property("syncing the same set twice is idempotent", prop.ForAll(
		func(incoming []domainpages.Page) bool {
			if _, err := syncPages(repo, incoming); err != nil {
				return false
			}
			once := storedContents(t, db)

			result, err := syncPages(repo, incoming)
			if err != nil {
				return false
			}
			twice := storedContents(t, db)

			return sameContents(once, twice) && result.Inserted == 0 && result.Deleted == 0
		},
		gen.SliceOf(genPage()),
	))

	properties.TestingRun(t)
}
