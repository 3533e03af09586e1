// Package model は変換器に共通する学習状態と、学習済みパラメータの交換形式を提供する
package model

import "github.com/cytoprof/cytoprof/pkg/errors"

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全ての変換器の基底となる構造体
// ロックは持たないため、同一インスタンスへの並行Fitは呼び出し側で直列化すること
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}

// CheckFitted は未学習の場合にNotFittedErrorを返す
func (e *BaseEstimator) CheckFitted(modelName, method string) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
