package services

import (
	"git.solsynth.dev/hypernet/attendance/pkg/internal/provider"
	"github.com/spf13/viper"
)

func SetupProviders() {
	provider.Register(provider.MockName, func() (provider.Provider, error) {
		return provider.NewMockProvider(provider.MockOptions{
			Signer: provider.NewJoinURLSigner(
				viper.GetString("meetings.base_url"),
				viper.GetString("meetings.join_secret"),
			),
		}), nil
	})
}

// GetProvider resolves the backend named in the settings.
func GetProvider() (provider.Provider, error) {
	name := viper.GetString("meetings.provider")
	if name == "" {
		name = provider.MockName
	}
	return provider.GetProvider(name)
}
