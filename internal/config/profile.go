package config

import (
	"fmt"
	"portfolio-assistant/internal/model"

	"github.com/spf13/viper"
)

// DefaultApology 在资料文件未提供道歉文案时使用。
const DefaultApology = "I'm having trouble connecting right now. Please try again later or contact me directly!"

// LoadProfile 从 YAML 文件读取个人资料。资料在启动时读取一次，之后只读。
func LoadProfile(path string) (*model.Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取个人资料失败: %w", err)
	}

	var profile model.Profile
	if err := v.Unmarshal(&profile); err != nil {
		return nil, fmt.Errorf("无法解析个人资料: %w", err)
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("个人资料缺少 name 字段: %s", path)
	}
	if profile.Assistant.Apology == "" {
		profile.Assistant.Apology = DefaultApology
	}
	return &profile, nil
}
