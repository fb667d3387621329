// Package hints contains the database of suggestions attached to unresolved dependencies: when a
// claimed type matches a record, the record tells which artifact and module usually provide it.
package hints

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"

	"github.com/a-peyrard/koragraph/set"
	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Record suggests an artifact for the types whose qualified form matches Pattern, claimed
	// with exactly Tags.
	Record struct {
		Pattern  string   `mapstructure:"pattern"`
		Tags     []string `mapstructure:"tags"`
		Artifact string   `mapstructure:"artifact"`
		Module   string   `mapstructure:"module"`
		Version  string   `mapstructure:"version"`

		regex   *regexp.Regexp
		version *semver.Version
	}

	// Database is read only once built, it can be shared between runs.
	Database struct {
		records []Record
	}

	file struct {
		Hints []Record `mapstructure:"hints"`
	}
)

// New validates the records: patterns must compile and versions must be semantic versions.
func New(records ...Record) (*Database, error) {
	var errs []error
	db := &Database{records: make([]Record, 0, len(records))}
	for i, r := range records {
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("hint #%d has no pattern", i))
			continue
		}
		regex, err := regexp.Compile("^(?:" + r.Pattern + ")$")
		if err != nil {
			errs = append(errs, fmt.Errorf("hint #%d has an invalid pattern %q:\n\t%w", i, r.Pattern, err))
			continue
		}
		r.regex = regex

		if r.Version != "" {
			version, err := semver.NewVersion(r.Version)
			if err != nil {
				errs = append(errs, fmt.Errorf("hint #%d has an invalid version %q:\n\t%w", i, r.Version, err))
				continue
			}
			r.version = version
		}
		db.records = append(db.records, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return db, nil
}

// LoadFile reads the records listed under the "hints" key of a configuration file, any format
// viper understands can be used.
func LoadFile(path string) (*Database, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read hints from %s:\n\t%w", path, err)
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("unable to unmarshal hints from %s:\n\t%w", path, err)
	}

	db, err := New(f.Hints...)
	if err != nil {
		return nil, fmt.Errorf("invalid hints in %s:\n\t%w", path, err)
	}
	return db, nil
}

func (d *Database) Len() int {
	return len(d.records)
}

// Hints returns the suggestions of the records matching the type and the tags, in record order.
func (d *Database) Hints(t typesys.Type, tags []string) []string {
	if d == nil {
		return nil
	}
	text := typesys.QualifiedString(t)
	wanted := set.NewFromSlice(tags)

	var hints []string
	for _, r := range d.records {
		if !r.regex.MatchString(text) || !set.NewFromSlice(r.Tags).Equal(wanted) {
			continue
		}
		hints = append(hints, r.describe(t))
	}
	return hints
}

func (r Record) describe(t typesys.Type) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s is usually provided by %s", t, r.Artifact))
	if r.version != nil {
		b.WriteString("@v" + r.version.String())
	}
	if r.Module != "" {
		b.WriteString(fmt.Sprintf(", add module %s to the graph", r.Module))
	}
	return b.String()
}
