// Moderation component for per-guild and per-channel settings: supervised and protected channels, rate thresholds, slowmode ceilings, decay intervals, and log channels.
//
// Includes an interface and implementations using in-process memory, a JSON file (compatible with the `save.json` format of earlier releases), and redis, plus a read-through LRU cache to put in front of the remote backend.
//
// Missing configuration is never an error: it reads back as "feature disabled" or as the documented default.
package configstore
