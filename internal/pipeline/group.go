package pipeline

import (
	"strings"

	"mepbid/internal"
	"mepbid/internal/lookup"
)

// GroupByTable files each item under the label its item number resolves to.
func GroupByTable(items []internal.BidItem, table lookup.Table) internal.Groups {
	groups := internal.Groups{}
	for _, item := range items {
		groups.Add(table.Lookup(item.ItemNumber), item)
	}
	return groups
}

// GroupByLabels pairs items with precomputed labels, using fallback for
// blank ones.
func GroupByLabels(items []internal.BidItem, labels []string, fallback string) internal.Groups {
	groups := internal.Groups{}
	for i, item := range items {
		label := ""
		if i < len(labels) {
			label = strings.TrimSpace(labels[i])
		}
		if label == "" {
			label = fallback
		}
		groups.Add(label, item)
	}
	return groups
}

// GroupBySpec regroups an assembled view by specification name. Items with
// no spec refs land under noSpecLabel.
func GroupBySpec(source internal.Groups, noSpecLabel string) internal.Groups {
	groups := internal.Groups{}
	for _, item := range source.Items() {
		if len(item.SpecRefs) == 0 {
			groups.AddUnique(noSpecLabel, item)
			continue
		}
		for _, rg := range item.SpecRefs {
			for _, ref := range rg.Items {
				key := specKey(ref)
				if key == "" {
					continue
				}
				groups.AddUnique(key, item)
			}
		}
	}
	return groups
}

func specKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if _, after, found := strings.Cut(ref, " - "); found {
		return strings.TrimSpace(after)
	}
	return ref
}
