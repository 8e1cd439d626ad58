package commonGo

import (
	"fmt"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/multiversx/mx-chain-logger-go/file"
)

// ArgsFileLogger defines the arguments used when attaching a log file
type ArgsFileLogger struct {
	WorkingDir       string
	DefaultLogsPath  string
	LogFilePrefix    string
	SaveLogFile      bool
	LifeSpan         time.Duration
	LifeSpanSizeInMB uint64
}

// AttachFileLogger attaches, if required, a rotating log file. It returns a nil handler when logs
// are not saved.
func AttachFileLogger(log logger.Logger, args ArgsFileLogger) (FileLoggingHandler, error) {
	err := logger.SetDisplayByteSlice(logger.ToHex)
	log.LogIfError(err)

	if !args.SaveLogFile {
		return nil, nil
	}

	logFile, err := file.NewFileLogging(file.ArgsFileLogging{
		WorkingDir:      args.WorkingDir,
		DefaultLogsPath: args.DefaultLogsPath,
		LogFilePrefix:   args.LogFilePrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("%w creating a log file", err)
	}

	if args.LifeSpan > 0 {
		err = logFile.ChangeFileLifeSpan(args.LifeSpan, args.LifeSpanSizeInMB)
		if err != nil {
			_ = logFile.Close()
			return nil, err
		}
	}

	return logFile, nil
}
