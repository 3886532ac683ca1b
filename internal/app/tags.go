package app

import (
	"context"
	"fmt"
	"sort"

	"polymarket-scraper/internal/render"
)

// Tags lists the tags known to the Gamma API, sorted by label.
func (a *App) Tags(ctx context.Context) error {
	source, err := a.newFetcher()
	if err != nil {
		return err
	}

	tags, err := source.FetchTags(ctx)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Fprintln(a.Out, "no tags found")
		return nil
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Label < tags[j].Label })
	return render.RenderTags(a.Out, tags)
}
