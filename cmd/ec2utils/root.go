package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/config"
	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/pkg/instance"
)

// app carries the state shared by all commands of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	debug   bool

	stdout io.Writer
	stderr io.Writer

	newSession func(cfg *config.Config) *instance.Session

	cfg     *config.Config
	session *instance.Session
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		newSession: func(cfg *config.Config) *instance.Session {
			return instance.NewSession(cfg)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ec2utils",
		Short: "Describe the EC2 instance this runs on",
		Long: `ec2utils reads the identity of the EC2 instance it runs on from the
metadata service, adds its tags and the CloudFormation stack that created it,
and caches the result for other processes on the same host.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.InitLogger(a.debug); err != nil {
				return err
			}
			return a.init()
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.ec2utils.yaml)")
	flags.String("profile", "", "AWS profile")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	_ = a.v.BindPFlag("aws.profile", flags.Lookup("profile"))

	rootCmd.AddCommand(
		newInfoCmd(a),
		newUserDataCmd(a),
		newSignalStatusCmd(a),
		newAccountIDCmd(a),
		newRegionCmd(a),
		newClearCacheCmd(a),
		newPruneCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// init reads the config file, environment and flags and opens the session
func (a *app) init() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".ec2utils")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	} else {
		logger.GetLogger().Debug("Using config file", zap.String("path", filepath.Clean(a.v.ConfigFileUsed())))
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.session = a.newSession(cfg)
	return nil
}
