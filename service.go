package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/thingsplex/tsiclient/api"
	"github.com/thingsplex/tsiclient/integration/tsdb"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

func SetupLog(logfile string, level string, logFormat string) {
	if logFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.999"})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, ForceColors: true, TimestampFormat: "2006-01-02T15:04:05.999"})
	}

	logLevel, err := log.ParseLevel(level)
	if err == nil {
		log.SetLevel(logLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}

	if logfile != "" {
		l := lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    5, // megabytes
			MaxBackups: 2,
		}
		log.SetOutput(&l)
	}
}

func loadConfigs(args []string) (*model.Configs, error) {
	flags := pflag.NewFlagSet("tsiclient", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "Config file")
	flags.StringP("input", "i", "", "Request file , - reads stdin")
	flags.StringP("output", "o", "", "Response file , - writes to stdout")
	flags.String("csv-dir", "", "Directory for csv export of event grids")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	v := model.NewConfigLoader()
	for key, flag := range map[string]string{"input_file": "input", "output_file": "output", "csv_dir": "csv-dir"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
	}
	if *configFile == "" && utils.FileExists("./config.json") {
		*configFile = "./config.json"
	}
	if *configFile != "" {
		fmt.Fprintln(os.Stderr, "Loading configs from file ", *configFile)
	}
	return model.LoadConfigs(v, *configFile)
}

func readInput(name string) ([]byte, error) {
	if name == model.StdStream {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func writeOutput(name string, data []byte) error {
	if name == model.StdStream {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(name, data, 0644)
}

func main() {
	configs, err := loadConfigs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		panic("Can't load config file.")
	}

	SetupLog(configs.LogFile, configs.LogLevel, configs.LogFormat)
	log.Info("--------------Starting tsiclient-----------------")

	pipeline, err := tsdb.Boot(configs)
	if err != nil {
		log.Fatal("<main> Pipeline can't be initialized. Err: ", err)
	}
	transformer := api.NewTransformer(pipeline)

	request, err := readInput(configs.InputFile)
	if err != nil {
		log.Fatal("<main> Can't read request. Err: ", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	response, err := transformer.Handle(ctx, request)
	if err != nil {
		log.Fatal("<main> Can't encode response. Err: ", err)
	}
	if err = writeOutput(configs.OutputFile, response); err != nil {
		log.Fatal("<main> Can't write response. Err: ", err)
	}
	log.Info("<main> Done")
}
