package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/commonGo"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/export"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/factory"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/urfave/cli"
)

const (
	defaultLogsPath      = "logs"
	logFilePrefix        = "dashboard"
	logFileLifeSpanInSec = 86400 // 24h
	logFileLifeSpanInMB  = 1024  // 1GB
	envFile              = "./.env"
	envServiceKey        = "SERVICE_KEY"
	envAdminUsername     = "ADMIN_USERNAME"
	envAdminPassword     = "ADMIN_PASSWORD"
)

// appVersion should be populated at build time using ldflags
// Usage examples:
// Linux/macOS:
//
//	go build -v -ldflags="-X main.appVersion=$(git describe --all | cut -c7-32)
var appVersion = "undefined"
var fileLogging commonGo.FileLoggingHandler

var (
	helpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}} {{if .Commands}}command [command options]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
   {{range .Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}
VERSION:
   {{.Version}}
   {{end}}
`

	log = logger.GetOrCreate("main")

	// logLevel defines the logger level
	logLevel = cli.StringFlag{
		Name: "log-level",
		Usage: "This flag specifies the logger `level(s)`. It can contain multiple comma-separated value. For example" +
			", if set to *:INFO the logs for all packages will have the INFO level. However, if set to *:INFO,api:DEBUG" +
			" the logs for all packages will have the INFO level, excepting the api package which will receive a DEBUG" +
			" log level.",
		Value: "*:" + logger.LogInfo.String(),
	}
	// logFile is used when the log output needs to be logged in a file
	logSaveFile = cli.BoolFlag{
		Name:  "log-save",
		Usage: "Boolean option for enabling log saving. If set, it will automatically save all the logs into a file.",
	}
	// workingDirectory defines a flag for the path for the working directory.
	workingDirectory = cli.StringFlag{
		Name:  "working-directory",
		Usage: "This flag specifies the `directory` where the service will store databases and logs.",
		Value: "",
	}
	// configurationFile defines the path of the toml configuration file
	configurationFile = cli.StringFlag{
		Name:  "config",
		Usage: "The `filepath` of the toml configuration file.",
		Value: "./config.toml",
	}
	// sensorID, from and to restrict the exported readings
	sensorID = cli.StringFlag{
		Name:  "sensor-id",
		Usage: "Exports only the readings of this `sensor`.",
	}
	from = cli.StringFlag{
		Name:  "from",
		Usage: "Inclusive lower `bound`, RFC 3339 timestamp or YYYY-MM-DD date.",
	}
	to = cli.StringFlag{
		Name:  "to",
		Usage: "Inclusive upper `bound`, RFC 3339 timestamp or YYYY-MM-DD date.",
	}
	output = cli.StringFlag{
		Name:  "output",
		Usage: "The `filepath` of the exported file, the .xlsx or .pdf extension selects the format.",
		Value: "readings.xlsx",
	}

	envFileContents = map[string]string{
		envServiceKey:    "",
		envAdminUsername: "",
		envAdminPassword: "",
	}
)

func main() {
	app := cli.NewApp()
	cli.AppHelpTemplate = helpTemplate
	app.Name = "IoT sensor dashboard"
	app.Version = fmt.Sprintf("%s/%s/%s-%s", appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	app.Usage = "This is the entry point for the service serving the sensor telemetry dashboard"
	app.Flags = []cli.Flag{
		logLevel,
		logSaveFile,
		workingDirectory,
		configurationFile,
	}
	app.Authors = []cli.Author{
		{
			Name:  "Iulian Pascalau",
			Email: "iulian.pascalau@gmail.com",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "watch",
			Usage:  "periodically logs the live view, the same way the dashboard home page refreshes",
			Action: watch,
		},
		{
			Name:   "export",
			Usage:  "writes the matching readings to an xlsx or pdf file",
			Flags:  []cli.Flag{sensorID, from, to, output},
			Action: exportReadings,
		},
	}

	app.Action = run

	defer func() {
		if fileLogging != nil {
			_ = fileLogging.Close()
		}
	}()

	err := app.Run(os.Args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) (*config.Config, error) {
	saveLogFile := ctx.GlobalBool(logSaveFile.Name)
	workingDir := ctx.GlobalString(workingDirectory.Name)

	err := logger.SetLogLevel(ctx.GlobalString(logLevel.Name))
	if err != nil {
		return nil, err
	}

	fileLogging, err = commonGo.AttachFileLogger(log, commonGo.ArgsFileLogger{
		WorkingDir:       workingDir,
		DefaultLogsPath:  defaultLogsPath,
		LogFilePrefix:    logFilePrefix,
		SaveLogFile:      saveLogFile,
		LifeSpan:         time.Second * time.Duration(logFileLifeSpanInSec),
		LifeSpanSizeInMB: logFileLifeSpanInMB,
	})
	if err != nil {
		return nil, err
	}

	err = commonGo.ReadEnvFile(envFile, envFileContents)
	if err != nil {
		return nil, err
	}

	return config.LoadConfig(ctx.GlobalString(configurationFile.Name))
}

func createComponents(ctx *cli.Context, cfg *config.Config) (factory.ComponentsHandler, error) {
	return factory.NewComponentsHandler(factory.ArgsComponentsHandler{
		Config:        *cfg,
		WorkingDir:    ctx.GlobalString(workingDirectory.Name),
		ServiceKeyApi: envFileContents[envServiceKey],
		AdminUsername: envFileContents[envAdminUsername],
		AdminPassword: envFileContents[envAdminPassword],
	})
}

func run(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	log.Info("Starting dashboard service", "version", appVersion, "pid", os.Getpid())

	components, err := createComponents(ctx, cfg)
	if err != nil {
		return err
	}

	components.Start()
	log.Info("Dashboard service started", "address", components.GetServer().Address())

	waitForSignal()

	log.Info("Application closing, calling Close on all subcomponents...")
	components.Close()

	return nil
}

func watch(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	components, err := createComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	dashboard := components.GetDashboard()
	cronCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commonGo.CronJobStarter(cronCtx, func(ctx context.Context) {
		logLiveView(ctx, dashboard)
	}, cfg.RefreshInterval())

	waitForSignal()

	return nil
}

func logLiveView(ctx context.Context, dashboard factory.DashboardHandler) {
	view, err := dashboard.LiveView(ctx)
	if err != nil {
		log.Error("live view failed", "error", err)
		return
	}

	for _, row := range view.Rows {
		switch {
		case row.NoData:
			log.Warn("no data", "sensor", row.SensorID, "name", row.SensorName)
		case row.Alert != common.AlertNormal || row.Stale:
			log.Warn("alert", "sensor", row.SensorID, "metric", row.Metric, "value", row.Display,
				"state", row.Alert, "stale", row.Stale, "timestamp", row.Timestamp)
		default:
			log.Info("reading", "sensor", row.SensorID, "metric", row.Metric, "value", row.Display)
		}
	}
	log.Info("live view refreshed", "rows", len(view.Rows), "parse errors", view.ParseErrors)
}

func exportReadings(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	components, err := createComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	dashboard := components.GetDashboard()
	stream, err := dashboard.History(context.Background(), common.HistoryQuery{
		SensorID: ctx.String(sensorID.Name),
		From:     ctx.String(from.Name),
		To:       ctx.String(to.Name),
	})
	if err != nil {
		return err
	}

	outputFile := ctx.String(output.Name)
	var data []byte
	switch filepath.Ext(outputFile) {
	case ".xlsx":
		data, err = export.ToTable(stream.Readings, dashboard.Location())
	case ".pdf":
		data, err = export.ToDocument(stream.Readings, dashboard.Location())
	default:
		return errors.New("the output file must have the .xlsx or .pdf extension")
	}
	if err != nil {
		return err
	}

	err = os.WriteFile(outputFile, data, 0644)
	if err != nil {
		return err
	}

	log.Info("readings exported", "file", outputFile, "readings", len(stream.Readings), "parse errors", len(stream.ParseErrors))
	return nil
}

func waitForSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	<-sigs
}
