package model

import (
	"strconv"
	"strings"
)

// Separator joins the segments of a composed key
const Separator = "/"

// Subpath returns base + "/" + relative.
// relative is not escaped, so it must not contain a separator itself.
func Subpath(base, relative string) string {
	return base + Separator + relative
}

// SubpathAt returns base + "/" + relative + "/" + index
func SubpathAt(base, relative string, index int) string {
	return base + Separator + relative + Separator + strconv.Itoa(index)
}

// InSubtree reports whether key lies below base, i.e. starts with base + "/".
// base itself is not part of its subtree.
func InSubtree(key, base string) bool {
	return strings.HasPrefix(key, base+Separator)
}
