// Package cameras resolves the immutable camera list for one sync pass,
// either from static configuration or by discovering camera directories on
// the NAS mount.
package cameras

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hiksync/internal/config"
	"hiksync/internal/textutil"
)

// ErrDuplicateTag reports two cameras that would write into the same tree.
var ErrDuplicateTag = errors.New("duplicate camera tag")

// Camera is one source/destination pairing.
type Camera struct {
	Name            string
	SourcePath      string
	DestinationPath string
	Tag             string
}

// ParseTranslation parses comma-separated name:tag pairs. Entries without a
// colon or with an empty side are ignored.
func ParseTranslation(value string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		name, tag, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		tag = strings.TrimSpace(tag)
		if name == "" || tag == "" {
			continue
		}
		out[name] = tag
	}
	return out
}

// Discover lists every immediate subdirectory of inputDir as a camera, sorted
// by name. Tags come from translation when present, otherwise the directory
// name, sanitized for filesystem use.
func Discover(inputDir, outputDir string, translation map[string]string) ([]Camera, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var out []Camera
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		tag := name
		if translated, ok := translation[name]; ok {
			tag = translated
		}
		tag = textutil.SanitizeTag(tag)
		if tag == "" {
			return nil, fmt.Errorf("camera %q: tag is empty after sanitizing", name)
		}
		out = append(out, Camera{
			Name:            name,
			SourcePath:      filepath.Join(inputDir, name),
			DestinationPath: filepath.Join(outputDir, tag),
			Tag:             tag,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FromStatic builds cameras from explicit configuration entries. Missing
// tags fall back to the translated or raw name; missing destinations to
// outputDir/<tag>.
func FromStatic(static []config.StaticCamera, outputDir string, translation map[string]string) ([]Camera, error) {
	out := make([]Camera, 0, len(static))
	for i, entry := range static {
		name := entry.Name
		if name == "" {
			name = filepath.Base(entry.Source)
		}
		tag := entry.Tag
		if tag == "" {
			tag = name
			if translated, ok := translation[name]; ok {
				tag = translated
			}
		}
		tag = textutil.SanitizeTag(tag)
		if tag == "" {
			return nil, fmt.Errorf("static camera %d: tag is empty after sanitizing", i)
		}
		dest := entry.Destination
		if dest == "" {
			dest = filepath.Join(outputDir, tag)
		}
		out = append(out, Camera{Name: name, SourcePath: entry.Source, DestinationPath: dest, Tag: tag})
	}
	return out, nil
}

// Resolve returns the configured camera list: static entries when present,
// discovery otherwise.
func Resolve(cfg *config.Config) ([]Camera, error) {
	translation := ParseTranslation(cfg.Cameras.Translation)
	var (
		list []Camera
		err  error
	)
	if len(cfg.Cameras.Static) > 0 {
		list, err = FromStatic(cfg.Cameras.Static, cfg.Paths.OutputDir, translation)
	} else {
		list, err = Discover(cfg.Paths.InputDir, cfg.Paths.OutputDir, translation)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// Validate rejects cameras that share a tag or destination.
func Validate(list []Camera) error {
	tags := make(map[string]string, len(list))
	dests := make(map[string]string, len(list))
	for _, cam := range list {
		if cam.Tag == "" {
			return fmt.Errorf("camera %q: empty tag", cam.Name)
		}
		if other, ok := tags[cam.Tag]; ok {
			return fmt.Errorf("%w %q: cameras %q and %q", ErrDuplicateTag, cam.Tag, other, cam.Name)
		}
		tags[cam.Tag] = cam.Name
		dest := filepath.Clean(cam.DestinationPath)
		if other, ok := dests[dest]; ok {
			return fmt.Errorf("%w: cameras %q and %q share destination %s", ErrDuplicateTag, other, cam.Name, dest)
		}
		dests[dest] = cam.Name
	}
	return nil
}
