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

package modfsgcs

type Config struct {
	Bucket string `json:"bucket" yaml:"bucket"`

	// optional, allows the table root to live in a specific directory
	// inside the provided bucket
	Prefix string `json:"prefix" yaml:"prefix"`
}
