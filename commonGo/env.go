package commonGo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// ReadEnvFile fills the provided map from the .env file. Keys already exported in the process environment
// take precedence and a missing file is tolerated as long as every key ends up set.
func ReadEnvFile(envFile string, m map[string]string) error {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w while reading %s", err, envFile)
	}

	missing := make([]string, 0)
	for k := range m {
		val := os.Getenv(k)
		if len(val) == 0 {
			missing = append(missing, k)
			continue
		}

		m[k] = val
	}
	if len(missing) > 0 {
		return fmt.Errorf("%v not set in the environment or in %s", missing, envFile)
	}

	return nil
}
