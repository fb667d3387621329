// Package config loads typed settings with viper from an optional file, environment variables
// and command line flags.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/str"
)

type (
	Options struct {
		prefix string
		file   string
		flags  *pflag.FlagSet
	}

	// WithDefault is implemented by settings structs filling their unset fields once loaded.
	WithDefault interface {
		ApplyDefault()
	}
)

var withDefaultType = reflect.TypeOf((*WithDefault)(nil)).Elem()

func WithEnvPrefix(prefix string) option.Option[Options] {
	return func(opts *Options) {
		opts.prefix = prefix
	}
}

// WithFile reads the given file first, every other source overrides it.
func WithFile(path string) option.Option[Options] {
	return func(opts *Options) {
		opts.file = path
	}
}

// WithFlags binds the flags of the set, a flag named "fork-parallelism" sets the key
// "forkParallelism" and "log.level" sets the key "level" of the "log" struct. Flags only take
// precedence when set on the command line.
func WithFlags(flags *pflag.FlagSet) option.Option[Options] {
	return func(opts *Options) {
		opts.flags = flags
	}
}

// Load builds a T from the configured sources, nil nested structs are created and ApplyDefault
// is called on every struct implementing WithDefault.
func Load[T any](opts ...option.Option[Options]) (*T, error) {
	options := option.Build(&Options{}, opts...)

	v := viper.New()
	v.SetEnvPrefix(options.prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.file != "" {
		v.SetConfigFile(options.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s:\n\t%w", options.file, err)
		}
	}

	var vT T
	bindEnvs(v, options.prefix, vT)

	if options.flags != nil {
		var err error
		options.flags.VisitAll(func(f *pflag.Flag) {
			if err == nil {
				err = v.BindPFlag(flagKey(f.Name), f)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("unable to bind flags:\n\t%w", err)
		}
	}

	if err := v.Unmarshal(&vT); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	applyDefaults(reflect.ValueOf(&vT))

	return &vT, nil
}

func flagKey(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = str.ToLowerCamelCase(part)
	}
	return strings.Join(parts, ".")
}

func bindEnvs(viperI *viper.Viper, envPrefix string, myStruct any, parts ...string) {
	ifv := reflect.ValueOf(myStruct)
	ift := reflect.TypeOf(myStruct)
	if ift == nil || ift.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		if !t.IsExported() {
			continue
		}
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			tv = t.Name
		}
		switch v.Kind() {
		case reflect.Struct:
			bindEnvs(viperI, envPrefix, v.Interface(), append(parts, tv)...)
		case reflect.Pointer:
			if t.Type.Elem().Kind() == reflect.Struct {
				bindEnvs(viperI, envPrefix, reflect.Zero(t.Type.Elem()).Interface(), append(parts, tv)...)
			}
		default:
			key := strings.Join(append(parts, tv), ".")
			join := strings.Join(append(parts, str.ToScreamingSnakeCase(tv)), ".")
			_ = viperI.BindEnv(key, mergeWithEnvPrefix(envPrefix, join))
		}
	}
}

func mergeWithEnvPrefix(envPrefix string, in string) string {
	if envPrefix != "" {
		return strings.ToUpper(envPrefix + "_" + in)
	}

	return strings.ToUpper(in)
}

// applyDefaults walks the exported fields, creating nil struct pointers, and calls ApplyDefault
// on the parents after their children.
func applyDefaults(val reflect.Value) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			if !val.CanSet() || val.Type().Elem().Kind() != reflect.Struct {
				return
			}
			val.Set(reflect.New(val.Type().Elem()))
		}
		applyDefaults(val.Elem())
		if val.Type().Implements(withDefaultType) {
			val.Interface().(WithDefault).ApplyDefault()
		}
		return
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if !typ.Field(i).IsExported() {
			continue
		}
		field := val.Field(i)
		switch field.Kind() {
		case reflect.Pointer:
			applyDefaults(field)
		case reflect.Struct:
			applyDefaults(field)
			if field.CanAddr() && field.Addr().Type().Implements(withDefaultType) {
				field.Addr().Interface().(WithDefault).ApplyDefault()
			}
		}
	}
}
