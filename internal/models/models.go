// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package models holds the database row types of the account service.
package models
