// Package textutil sanitizes camera names and tags for safe use as path
// segments and filename components.
package textutil
