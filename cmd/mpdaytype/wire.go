//go:build wireinject
// +build wireinject

package main

import (
	"mp-daytype/internal/app"

	"github.com/google/wire"
)

var baseSet = wire.NewSet(
	app.ProvideConfig,
	app.ProvideMetrics,
	app.ProvideClassifier,
	app.ProvideRecorder,
	app.ProvideInstruments,
	app.NewApp,
)

// InitializeApp builds the App with the configured data provider via Wire.
// Caller must call cleanup when done.
func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		baseSet,
		app.ProvidePacketSaver,
		app.ProvideDataProvider,
	)
	return nil, nil, nil
}

// InitializeOfflineApp builds the App on the local packet provider via Wire.
func InitializeOfflineApp() (*app.App, func(), error) {
	wire.Build(
		baseSet,
		app.ProvideLocalProvider,
	)
	return nil, nil, nil
}
