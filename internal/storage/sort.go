package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/wsgate/internal/model"
)

// SortClientConfigs orders configs by creation time, then id
func SortClientConfigs(cfgs []*model.ClientConfig) {
	slices.SortFunc(cfgs, func(a, b *model.ClientConfig) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UUID, b.UUID)
	})
}
