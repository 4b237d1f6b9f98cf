package data

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	mapset "github.com/deckarep/golang-set"
	log "github.com/sirupsen/logrus"

	"github.com/ZinoKader/reqcheck/model"
)

func ReadManifest(file string) (model.Manifest, error) {
	content, err := ioutil.ReadFile(file)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("could not read manifest %s: %w", file, err)
	}
	return ParseManifest(file, string(content)), nil
}

// ReadManifestTree reads a manifest and every manifest it includes with
// -r or -c, relative to the including file. Each file is read once; an
// include that leads back to a file on the current include chain is
// recorded as a line error on the including manifest.
func ReadManifestTree(file string) ([]model.Manifest, error) {
	var manifests []model.Manifest
	visited := mapset.NewSet()

	var walk func(file string, constraints bool, chain mapset.Set) error
	walk = func(file string, constraints bool, chain mapset.Set) error {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		if !visited.Add(abs) {
			return nil
		}

		manifest, err := ReadManifest(file)
		if err != nil {
			return err
		}
		manifest.Constraints = constraints
		chain = chain.Clone()
		chain.Add(abs)

		var children []model.Option
		for _, opt := range manifest.Options {
			if !opt.IsInclude() {
				continue
			}
			target := opt.Value
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(file), target)
			}
			targetAbs, err := filepath.Abs(target)
			if err != nil {
				return err
			}
			if chain.Contains(targetAbs) {
				manifest.Errors = append(manifest.Errors, model.LineError{
					Path:   file,
					Line:   opt.Line,
					Text:   opt.Flag + " " + opt.Value,
					Reason: "include cycle",
				})
				continue
			}
			children = append(children, model.Option{Flag: opt.Flag, Value: target, Line: opt.Line})
		}

		log.WithFields(log.Fields{"manifest": file, "requirements": len(manifest.Requirements), "errors": len(manifest.Errors)}).Debug("parsed manifest")
		manifests = append(manifests, manifest)

		for _, child := range children {
			if err := walk(child.Value, constraints || child.IsConstraint(), chain); err != nil {
				return fmt.Errorf("%s:%d: %w", file, child.Line, err)
			}
		}
		return nil
	}

	if err := walk(file, false, mapset.NewSet()); err != nil {
		return nil, err
	}
	return manifests, nil
}
