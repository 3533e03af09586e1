package model

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// ParamsVersion is the current layout version of FittedParams.
const ParamsVersion = "1"

// MatrixParams は行優先で平坦化した行列
type MatrixParams struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrixParams は行列を行優先でコピーする
func NewMatrixParams(m mat.Matrix) *MatrixParams {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &MatrixParams{Rows: r, Cols: c, Data: data}
}

// Dense はパラメータから新しい *mat.Dense を作る
func (m *MatrixParams) Dense() *mat.Dense {
	return mat.NewDense(m.Rows, m.Cols, append([]float64(nil), m.Data...))
}

// FittedParams は変換器の学習済みパラメータを表す構造体（シリアライゼーション用）
// ファイルへの保存は呼び出し側の責務で、このパッケージは入出力を行わない
type FittedParams struct {
	// ModelType は変換器の種類（Sphering, RobustMAD）
	ModelType string `json:"model_type"`

	// Version はレイアウトのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Features は学習時の列名（オプション）
	Features []string `json:"features,omitempty"`

	// NFeatures は学習時の列数
	NFeatures int `json:"n_features"`

	// Hyperparameters は変換器のハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Vectors は列ごとの統計量（mean, variance, median, mad など）
	Vectors map[string][]float64 `json:"vectors,omitempty"`

	// Matrices は射影行列などの行列パラメータ
	Matrices map[string]*MatrixParams `json:"matrices,omitempty"`

	// Metadata は追加のメタデータ（ランクなど）
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON はFittedParamsをJSON形式にシリアライズ
func (p *FittedParams) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// FromJSON はJSON形式からFittedParamsをデシリアライズ
func (p *FittedParams) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, p); err != nil {
		return errors.Wrap(err, "decode fitted params")
	}
	return nil
}

// Validate はFittedParamsの妥当性を検証
func (p *FittedParams) Validate(modelType string) error {
	if p.ModelType != modelType {
		return errors.NewValueError("FittedParams.Validate",
			"model_type is "+p.ModelType+", want "+modelType)
	}
	if p.Version != ParamsVersion {
		return errors.NewValueError("FittedParams.Validate", "unsupported version "+p.Version)
	}
	if p.NFeatures <= 0 {
		return errors.NewValueError("FittedParams.Validate", "n_features must be positive")
	}
	if len(p.Features) > 0 && len(p.Features) != p.NFeatures {
		return errors.NewValueError("FittedParams.Validate", "features length does not match n_features")
	}
	for name, v := range p.Vectors {
		if len(v) != p.NFeatures {
			return errors.NewValueError("FittedParams.Validate", "vector "+name+" has wrong length")
		}
	}
	for name, m := range p.Matrices {
		if m == nil || m.Rows*m.Cols != len(m.Data) {
			return errors.NewValueError("FittedParams.Validate", "matrix "+name+" has inconsistent shape")
		}
	}
	return nil
}

// Clone はFittedParamsのディープコピーを作成
func (p *FittedParams) Clone() *FittedParams {
	clone := &FittedParams{
		ModelType:       p.ModelType,
		Version:         p.Version,
		NFeatures:       p.NFeatures,
		Hyperparameters: make(map[string]interface{}, len(p.Hyperparameters)),
		Vectors:         make(map[string][]float64, len(p.Vectors)),
		Matrices:        make(map[string]*MatrixParams, len(p.Matrices)),
		Metadata:        make(map[string]interface{}, len(p.Metadata)),
	}
	if p.Features != nil {
		clone.Features = append([]string(nil), p.Features...)
	}
	for k, v := range p.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	for k, v := range p.Vectors {
		clone.Vectors[k] = append([]float64(nil), v...)
	}
	for k, m := range p.Matrices {
		if m == nil {
			continue
		}
		clone.Matrices[k] = &MatrixParams{Rows: m.Rows, Cols: m.Cols, Data: append([]float64(nil), m.Data...)}
	}
	for k, v := range p.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
