package main

import (
	"github.com/activefrequency/tranquilo-shopify/internal/app"
	"github.com/activefrequency/tranquilo-shopify/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
