// Package model defines the provider-agnostic text completion abstraction
// used by the cognitive processor's enrich stage.
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the pipeline stays decoupled from vendor SDKs; MockModel serves
// tests and examples.
package model
