package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"vidshelf/internal/destination"
	"vidshelf/internal/fileutil"
	"vidshelf/internal/logging"
	"vidshelf/internal/mediafile"
	"vidshelf/internal/metadata"
	"vidshelf/internal/nfo"
	"vidshelf/internal/services"
)

const maxCollisionSuffix = 1000

// Result describes one organized file.
type Result struct {
	Source string
	Kind   mediafile.Kind
	// FinalPath is where the content now lives. For info.json sidecars it is
	// the descriptor path since the sidecar itself is consumed.
	FinalPath string
	// BaseName is the collision-resolved stem that auxiliary files share.
	BaseName   string
	Descriptor string
}

// Organizer moves files into library destinations.
type Organizer struct {
	logger *slog.Logger
}

// New constructs an Organizer.
func New(logger *slog.Logger) *Organizer {
	return &Organizer{logger: logging.NewComponentLogger(logger, "organizer")}
}

// Organize moves path into dest. The destination directory must exist.
func (o *Organizer) Organize(ctx context.Context, path string, dest destination.Info) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, o.logger)
	kind := mediafile.Classify(path)
	result := Result{Source: path, Kind: kind}

	if _, err := os.Lstat(path); err != nil {
		return result, missingSource(path, err)
	}

	if kind == mediafile.KindInfoJSON {
		return o.convertSidecar(logger, path, dest, result)
	}

	suffix := filepath.Ext(path)
	if tag := mediafile.LanguageTag(path); tag != "" {
		suffix = "." + tag + suffix
	}
	finalPath, stem, err := moveNoClobber(path, dest.Dir, dest.BaseName, suffix)
	if err != nil {
		return result, err
	}
	result.FinalPath = finalPath
	result.BaseName = stem

	if kind == mediafile.KindPrimary {
		descriptor := filepath.Join(dest.Dir, stem+nfo.Extension)
		if err := writeDescriptor(descriptor, dest.Metadata); err != nil {
			return result, services.Wrap(services.ErrTransient, "organizer", "descriptor",
				fmt.Sprintf("write %s", descriptor), err)
		}
		result.Descriptor = descriptor
	}

	logger.Info("file organized",
		logging.String("source", path),
		logging.String("target", finalPath),
		logging.String("kind", kind.String()))
	return result, nil
}

func (o *Organizer) convertSidecar(logger *slog.Logger, path string, dest destination.Info, result Result) (Result, error) {
	meta := dest.Metadata
	sidecar, err := nfo.ReadInfoJSON(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return result, missingSource(path, err)
	case err != nil:
		logging.WarnWithContext(logger, "info json sidecar unreadable", "sidecar_parse_failed",
			logging.String("source", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-download the info json with yt-dlp --write-info-json"),
			logging.String(logging.FieldImpact, "descriptor uses remote metadata only"))
	default:
		meta = meta.Merge(sidecar)
	}

	descriptor, stem := dest.Descriptor, dest.BaseName
	if descriptor != "" {
		if err := writeDescriptor(descriptor, meta); err != nil {
			return result, services.Wrap(services.ErrTransient, "organizer", "descriptor",
				fmt.Sprintf("write %s", descriptor), err)
		}
	} else {
		descriptor, stem, err = placeDescriptor(dest.Dir, dest.BaseName, meta)
		if err != nil {
			return result, err
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, services.Wrap(services.ErrTransient, "organizer", "sidecar",
			fmt.Sprintf("remove %s", path), err)
	}
	result.FinalPath = descriptor
	result.BaseName = stem
	result.Descriptor = descriptor
	logger.Info("sidecar converted",
		logging.String("source", path),
		logging.String("target", descriptor))
	return result, nil
}

func writeDescriptor(path string, meta metadata.Metadata) error {
	data, err := nfo.Render(meta)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// placeDescriptor writes a descriptor for meta under the first free
// "<stem> (n).nfo" name, leaving descriptors owned by other videos intact.
func placeDescriptor(dir, stem string, meta metadata.Metadata) (string, string, error) {
	data, err := nfo.Render(meta)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "organizer", "descriptor", "render descriptor", err)
	}
	tmp, err := fileutil.WriteTemp(dir, data, 0o644)
	if err != nil {
		return "", "", services.Wrap(services.ErrTransient, "organizer", "descriptor",
			fmt.Sprintf("stage descriptor in %s", dir), err)
	}
	path, placed, err := moveNoClobber(tmp, dir, stem, nfo.Extension)
	if err != nil {
		_ = os.Remove(tmp)
		return "", "", err
	}
	return path, placed, nil
}

func missingSource(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrNotFound, "organizer", "move",
			fmt.Sprintf("source %s is missing", path), err)
	}
	return services.Wrap(services.ErrTransient, "organizer", "move",
		fmt.Sprintf("stat %s", path), err)
}

// moveNoClobber places src at dir/<stem><suffix>, trying "<stem> (n)" names
// until one is free. It returns the final path and the stem used.
func moveNoClobber(src, dir, stem, suffix string) (string, string, error) {
	staged := src
	cleanupStaged := func() {
		if staged != src {
			_ = os.Remove(staged)
		}
	}

	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := stem
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)", stem, n)
		}
		target := filepath.Join(dir, candidate+suffix)

		err := placeFile(staged, target)
		if errors.Is(err, syscall.EXDEV) && staged == src {
			tmp, copyErr := fileutil.CopyToTemp(src, dir)
			if copyErr != nil {
				return "", "", services.Wrap(services.ErrTransient, "organizer", "move",
					"copy across filesystems", copyErr)
			}
			staged = tmp
			err = placeFile(staged, target)
		}
		switch {
		case err == nil:
			cleanupStaged()
			if removeErr := os.Remove(src); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
				return target, candidate, services.Wrap(services.ErrTransient, "organizer", "move",
					fmt.Sprintf("remove source %s", src), removeErr)
			}
			return target, candidate, nil
		case errors.Is(err, fs.ErrExist):
			continue
		case errors.Is(err, fs.ErrNotExist):
			if _, statErr := os.Lstat(src); statErr != nil {
				cleanupStaged()
				return "", "", missingSource(src, statErr)
			}
			cleanupStaged()
			return "", "", services.Wrap(services.ErrTransient, "organizer", "move",
				fmt.Sprintf("place %s", target), err)
		default:
			cleanupStaged()
			return "", "", services.Wrap(services.ErrTransient, "organizer", "move",
				fmt.Sprintf("place %s", target), err)
		}
	}
	cleanupStaged()
	return "", "", services.Wrap(services.ErrTransient, "organizer", "move",
		fmt.Sprintf("no free name for %s%s after %d attempts", stem, suffix, maxCollisionSuffix), nil)
}

// placeFile makes src visible at target without replacing an existing file.
// Hard links give that atomically; filesystems without link support fall back
// to a stat check followed by rename.
func placeFile(src, target string) error {
	err := os.Link(src, target)
	if err == nil || !linkUnsupported(err) {
		return err
	}
	if _, statErr := os.Lstat(target); statErr == nil {
		return fs.ErrExist
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}
	return os.Rename(src, target)
}

func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.EMLINK)
}
