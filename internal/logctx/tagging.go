package logctx

import (
	"context"
	"fluentsend/internal/global"
)

// Append new tag to tag list.
// Copy-on-write, parent context keeps its own list.
func AppendCtxTag(ctx context.Context, newTag string) (newCtx context.Context) {
	old := GetTagList(ctx)
	tags := make([]string, 0, len(old)+1)
	tags = append(append(tags, old...), newTag)

	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Removes last index of tag list (copy-on-write)
func RemoveLastCtxTag(ctx context.Context) (newCtx context.Context) {
	old := GetTagList(ctx)
	if len(old) == 0 {
		newCtx = ctx
		return
	}

	tags := append([]string(nil), old[:len(old)-1]...)
	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Extracts tag list from context or returns empty array
func GetTagList(ctx context.Context) (tags []string) {
	tags, ok := ctx.Value(global.LogTagsKey).([]string)
	if !ok {
		tags = []string{}
	}
	return
}
