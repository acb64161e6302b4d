// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Command terraform-provider-cidrplan serves the cidrplan Terraform
// provider over the plugin protocol.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"

	"github.com/easytofu/cidrplan/internal/provider"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var debug bool
	flag.BoolVar(&debug, "debug", false, "start the provider in debug mode for delve/dlv attach")
	flag.Parse()

	err := providerserver.Serve(context.Background(), provider.New(version), providerserver.ServeOpts{
		Address: "registry.terraform.io/easytofu/cidrplan",
		Debug:   debug,
	})
	if err != nil {
		log.Fatal(err.Error())
	}
}
