package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Opt is a single command-line option.
type Opt struct {
	DestP interface{} // pointer to the destination

	EnvVar     string
	Flag       string
	Persistent bool
	Required   bool
	Short      rune // using rune b/c it guarantees correctness. a short must always be a string of length 1

	Default interface{}
	Desc    string
}

// Program parses CLI options.
type Program struct {
	// Run is invoked by cobra on execute.
	Run func() error
	// Name is the name of the program in help usage and the env var prefix.
	Name string
	// Opts are the command line/env var options to the program.
	Opts []Opt
}

// NewCommand creates a new cobra command to be executed that respects env vars.
//
// Uses the upper-case version of the program's name as a prefix
// to all environment variables.
//
// This is to simplify the viper/cobra boilerplate.
func NewCommand(v *viper.Viper, p *Program) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:  p.Name,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return p.Run()
		},
	}

	v.SetEnvPrefix(strings.ToUpper(p.Name))
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Find the config. When the path carries a recognized extension it
	// names the file itself, otherwise it names a directory to search
	// for a file with the base name "config". Format precedence within
	// a directory follows viper's supported extension order, so a json
	// config shadows a toml one.
	if configPath := v.GetString("CONFIG_PATH"); configPath != "" {
		switch strings.ToLower(filepath.Ext(configPath)) {
		case ".json", ".toml", ".yaml", ".yml":
			v.SetConfigFile(configPath)
		default:
			v.SetConfigName("config")
			v.AddConfigPath(configPath)
		}
	} else {
		// Defaults to looking in the working directory of the running process.
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := BindOptions(v, cmd, p.Opts); err != nil {
		return nil, err
	}

	return cmd, nil
}

// BindOptions adds opts to the specified command and automatically
// registers those options with viper.
func BindOptions(v *viper.Viper, cmd *cobra.Command, opts []Opt) error {
	for _, o := range opts {
		flagset := cmd.Flags()
		if o.Persistent {
			flagset = cmd.PersistentFlags()
		}

		if o.Flag == "" {
			return fmt.Errorf("flag required for %v", o.DestP)
		}

		envVar := o.Flag
		if o.EnvVar != "" {
			envVar = o.EnvVar
		}

		hasShort := o.Short != 0

		switch destP := o.DestP.(type) {
		case *string:
			var d string
			if o.Default != nil {
				d = o.Default.(string)
			}
			if hasShort {
				flagset.StringVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.StringVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetString(envVar)
		case *int:
			var d int
			if o.Default != nil {
				d = o.Default.(int)
			}
			if hasShort {
				flagset.IntVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.IntVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetInt(envVar)
		case *int32:
			var d int32
			if o.Default != nil {
				// pflag doesn't provide an Int32 flag option, so we have to
				// accept an int option and cast it.
				d = int32(o.Default.(int))
			}
			if hasShort {
				flagset.Int32VarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.Int32Var(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetInt32(envVar)
		case *int64:
			var d int64
			if o.Default != nil {
				switch dflt := o.Default.(type) {
				case int64:
					d = dflt
				case int:
					d = int64(dflt)
				default:
					return fmt.Errorf("invalid default type %T for flag %s", o.Default, o.Flag)
				}
			}
			if hasShort {
				flagset.Int64VarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.Int64Var(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetInt64(envVar)
		case *bool:
			var d bool
			if o.Default != nil {
				d = o.Default.(bool)
			}
			if hasShort {
				flagset.BoolVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.BoolVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetBool(envVar)
		case *time.Duration:
			var d time.Duration
			if o.Default != nil {
				d = o.Default.(time.Duration)
			}
			if hasShort {
				flagset.DurationVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.DurationVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetDuration(envVar)
		case *[]string:
			var d []string
			if o.Default != nil {
				d = o.Default.([]string)
			}
			if hasShort {
				flagset.StringSliceVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.StringSliceVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetStringSlice(envVar)
		case *map[string]string:
			var d map[string]string
			if o.Default != nil {
				d = o.Default.(map[string]string)
			}
			if hasShort {
				flagset.StringToStringVarP(destP, o.Flag, string(o.Short), d, o.Desc)
			} else {
				flagset.StringToStringVar(destP, o.Flag, d, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			*destP = v.GetStringMapString(envVar)
		case pflag.Value:
			if o.Default != nil {
				if err := destP.Set(o.Default.(string)); err != nil {
					return err
				}
			}
			if hasShort {
				flagset.VarP(destP, o.Flag, string(o.Short), o.Desc)
			} else {
				flagset.Var(destP, o.Flag, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			if s := v.GetString(envVar); s != "" {
				if err := destP.Set(s); err != nil {
					return err
				}
			}
		case *zapcore.Level:
			var l zapcore.Level
			if o.Default != nil {
				l = o.Default.(zapcore.Level)
			}
			if hasShort {
				LevelVarP(flagset, destP, o.Flag, string(o.Short), l, o.Desc)
			} else {
				LevelVar(flagset, destP, o.Flag, l, o.Desc)
			}
			mustBindPFlag(v, o.Flag, flagset)
			if s := v.GetString(envVar); s != "" {
				if err := destP.Set(s); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown destination type %t", o.DestP)
		}

		// This must run after the above switch, otherwise cobra
		// will complain about a missing flag.
		//
		// Cobra will complain if a flag marked as required isn't present
		// on the CLI. To support setting required args via config and env
		// variables we only enforce the required check when we couldn't
		// find a value anywhere else.
		if o.Required && !v.InConfig(envVar) && v.Get(envVar) == nil {
			if err := cmd.MarkFlagRequired(o.Flag); err != nil {
				return err
			}
		}
	}

	return nil
}

func mustBindPFlag(v *viper.Viper, key string, flagset *pflag.FlagSet) {
	if err := v.BindPFlag(key, flagset.Lookup(key)); err != nil {
		panic(err)
	}
}
