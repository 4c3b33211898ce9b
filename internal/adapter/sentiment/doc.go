// Package sentiment provides domain.SentimentClassifier implementations: an HTTP
// client for a hosted text-classification model, a keyword heuristic that needs
// no network, and a chain that falls back from the first to the second.
package sentiment
