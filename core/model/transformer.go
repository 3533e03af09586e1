package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを参照データから学習する
	Fit(X mat.Matrix) error

	// Transform は学習済みパラメータでデータを変換する
	// 入力が *table.Table の場合は列名付きの表を返すことがある
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParamsExporter は学習済みパラメータを外部に受け渡せる変換器のインターフェース
type ParamsExporter interface {
	// ExportParams は学習済みパラメータのコピーを返す
	ExportParams() (*FittedParams, error)

	// ImportParams はエクスポートされたパラメータから学習済み状態を復元する
	ImportParams(params *FittedParams) error
}
