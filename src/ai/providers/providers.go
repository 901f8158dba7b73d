// Package providers registers every compiled-in oracle provider.
package providers

import (
	_ "github.com/tradesafe/tradeverify/src/ai/anthropic"
	_ "github.com/tradesafe/tradeverify/src/ai/openai"
)
