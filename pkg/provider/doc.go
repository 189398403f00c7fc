// Package provider defines the contract shared by the chat/embedding
// backends. Each implementation (openaisdk, dashscope) handles its own wire
// protocol internally and reports failures as *api.APIError values, keeping
// protocol details invisible to the comparator and the HTTP layer.
package provider
