// Package preprocessing はプロファイル行列の正規化を提供する
//
// Sphering は参照集団（陰性対照など）の共分散を単位行列にする白色化変換を学習し、
// RobustMAD は列ごとの中央値とMADで頑健にスケーリングする。
// どちらも model.Transformer を実装し、*table.Table を渡すと列名付きの結果を返す。
package preprocessing
