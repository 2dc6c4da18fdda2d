//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package modfsazure

const AZURE_STORAGE_CONNECTION_STRING = "AZURE_STORAGE_CONNECTION_STRING"

type Config struct {
	Container string `json:"container" yaml:"container"`
	Prefix    string `json:"prefix" yaml:"prefix"`

	// falls back to AZURE_STORAGE_CONNECTION_STRING
	ConnectionString string `json:"connectionString" yaml:"connectionString"`
}
