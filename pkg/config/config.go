// Package config는 애플리케이션 설정을 관리하는 패키지입니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 설정 디렉토리 경로
const configDir = "configs"

// Options Load 동작을 조정합니다. 비어 있으면 환경 변수 기본값을 사용합니다.
type Options struct {
	// Env 환경 이름 (기본값: APP_ENV 또는 dev)
	Env string
	// Path 설정 파일 디렉토리 (기본값: CONFIG_PATH 또는 configs/{env})
	Path string
	// EnvPrefix 환경 변수 접두사 (기본값: 서비스 이름 대문자)
	EnvPrefix string
	// Defaults 파일에 없는 키의 기본값
	Defaults map[string]interface{}
}

// Load는 지정된 서비스 이름에 해당하는 설정 파일을 읽어 viper 인스턴스를 반환합니다.
// 작업 디렉토리의 .env 파일이 있으면 먼저 환경 변수로 로드합니다.
func Load(serviceName string, opts Options) (*viper.Viper, error) {
	// .env가 없는 것은 정상입니다
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".env 로드 실패: %w", err)
	}

	env := opts.Env
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = "dev"
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(serviceName)

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	// 환경 변수 바인딩 설정 (예: RESTORE_DATABASE_HOST)
	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = serviceName
	}
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := opts.Path
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = filepath.Join(configDir, env)
	}
	v.AddConfigPath(configPath)
	// configs/{env}에 없으면 configs/example의 예제 설정을 사용합니다
	v.AddConfigPath(filepath.Join(configDir, "example"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
	}

	return v, nil
}

// Dir는 Load가 사용한 설정 파일의 디렉토리를 반환합니다.
// 같은 디렉토리에 있는 보조 파일(예: packs.yaml)을 찾을 때 사용합니다.
func Dir(v *viper.Viper) string {
	if used := v.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	return "."
}
