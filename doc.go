// Package forestfire is a batch analysis pipeline for the Algerian forest-fire
// dataset.
//
// The pipeline is split into stages that hand off through files, so each one
// can be re-run on its own:
//
//   - preprocess: drop duplicate and incomplete rows, derive features and
//     standardize every numeric column except the label
//   - explore: correlation heatmap, pairplot and regional analysis composed
//     into one figure, plus a summary-statistics workbook
//   - model: random forest classifier on a seeded train/test split, with a
//     text report, a JSON record and optional k-fold cross-validation
//   - visualize: multi-page PDF with distributions, correlations and
//     feature importances recovered from the model report
//   - regress: OLS fits for formulas such as "FWI ~ ISI + BUI"
//
// # Command line
//
//	forestfire preprocess data/raw.csv data/clean.csv
//	forestfire explore data/clean.csv figures/exploration.png
//	forestfire model data/clean.csv results/model_results.txt
//	forestfire visualize data/clean.csv results/model_results.txt results/visualizations.pdf
//	forestfire regress data/clean.csv results/regression.txt
//	forestfire runs
//	forestfire config
//
// Settings are read from an optional YAML file (--config) and from
// FORESTFIRE_* environment variables; see package config.
//
// # Packages
//
//   - dataset: in-memory table and CSV codec
//   - preprocessing: derived features, StandardScaler and the preprocess pipeline
//   - stats: describe-style summaries, correlations and the xlsx workbook
//   - plotting: gonum/plot figures and multi-page documents
//   - sklearn/tree, sklearn/ensemble: decision tree and random forest classifiers
//   - model_selection: train/test split and k-fold
//   - metrics: classification and regression metrics
//   - linear: formula parsing and OLS
//   - report: model report text and JSON record
//   - ledger: SQLite run history
//   - observability: Prometheus stage metrics and the injectable clock
//   - workflow: the stages themselves
//   - cli: cobra commands
package forestfire
