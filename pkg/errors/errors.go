// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
//
// All constructors attach a stack trace through cockroachdb/errors, and the
// precondition errors raised by the transformers also carry a remediation hint
// that can be read back with GetAllHints.
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("cytoprof-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// zerologの警告関数が登録されている場合はそちらが優先されます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ZeroSpreadWarning is raised when a column has a zero robust spread (MAD)
// and only the epsilon term keeps the scaled values finite.
type ZeroSpreadWarning struct {
	Estimator string
	Column    string
	Epsilon   float64
}

func (w *ZeroSpreadWarning) Error() string {
	return fmt.Sprintf("%s: column %s has zero median absolute deviation; scaled values are divided by epsilon=%g",
		w.Estimator, w.Column, w.Epsilon)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ZeroSpreadWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("estimator", w.Estimator).
		Str("column", w.Column).
		Float64("epsilon", w.Epsilon).
		Str("type", "ZeroSpreadWarning")
}

// NewZeroSpreadWarning は新しいZeroSpreadWarningを作成します。
func NewZeroSpreadWarning(estimator, column string, epsilon float64) *ZeroSpreadWarning {
	return &ZeroSpreadWarning{Estimator: estimator, Column: column, Epsilon: epsilon}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Transform` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("cytoprof: %s: this transformer is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithHint(errors.WithStack(err), "call Fit with a reference matrix first")
}

// ConfigurationError は構築時のパラメータ検証に失敗した場合のエラーです。
// 不正なメソッド名や、centerを必要とするメソッドでのcenter=falseなど。
type ConfigurationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cytoprof: invalid configuration for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースとヒントを付与します。
func NewConfigurationError(param, reason string, value interface{}, hint string) error {
	err := errors.WithStack(&ConfigurationError{ParamName: param, Reason: reason, Value: value})
	if hint != "" {
		err = errors.WithHint(err, hint)
	}
	return err
}

// DegenerateInputError は標準化の前提条件（分散が非ゼロ）を満たさない列がある場合のエラーです。
type DegenerateInputError struct {
	Op      string
	Columns []string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("cytoprof: %s: zero variance in %d column(s): %s",
		e.Op, len(e.Columns), strings.Join(e.Columns, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DegenerateInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("columns", e.Columns).
		Str("type", "DegenerateInputError")
}

// NewDegenerateInputError は新しいDegenerateInputErrorを作成し、スタックトレースとヒントを付与します。
func NewDegenerateInputError(op string, columns []string) error {
	err := errors.WithStack(&DegenerateInputError{Op: op, Columns: columns})
	return errors.WithHint(err, "remove zero-variance columns before fitting")
}

// RankDeficiencyError は参照行列の数値ランクが許容値（d または n-1）でない場合のエラーです。
type RankDeficiencyError struct {
	Op       string
	Rank     int
	Samples  int
	Features int
	Reason   string
}

func (e *RankDeficiencyError) Error() string {
	return fmt.Sprintf("cytoprof: %s: numerical rank %d of %dx%d matrix is not supported: %s",
		e.Op, e.Rank, e.Samples, e.Features, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RankDeficiencyError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rank", e.Rank).
		Int("samples", e.Samples).
		Int("features", e.Features).
		Str("reason", e.Reason).
		Str("type", "RankDeficiencyError")
}

// NewRankDeficiencyError は新しいRankDeficiencyErrorを作成し、スタックトレースとヒントを付与します。
func NewRankDeficiencyError(op string, rank, samples, features int, reason string) error {
	err := errors.WithStack(&RankDeficiencyError{
		Op:       op,
		Rank:     rank,
		Samples:  samples,
		Features: features,
		Reason:   reason,
	})
	return errors.WithHint(err, "check for linear dependencies between columns and remove them")
}

// ShapeMismatchError は変換対象の列が学習時の列と一致しない場合のエラーです。
type ShapeMismatchError struct {
	Op       string
	Expected int
	Got      int
	Column   string // 問題のある列名（オプション）
}

func (e *ShapeMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("cytoprof: %s: column mismatch at %q. Expected %d features, got %d",
			e.Op, e.Column, e.Expected, e.Got)
	}
	return fmt.Sprintf("cytoprof: %s: feature count mismatch. Expected %d, got %d", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("column", e.Column).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError は新しいShapeMismatchErrorを作成し、スタックトレースを付与します。
func NewShapeMismatchError(op string, expected, got int, column string) error {
	err := errors.WithStack(&ShapeMismatchError{Op: op, Expected: expected, Got: got, Column: column})
	return errors.WithHint(err, "transform inputs must have the columns seen at fit time")
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("cytoprof: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は変換器に関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cytoprof: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("cytoprof: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError は入力や計算結果にNaN・Infが含まれる場合のエラーです。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "Sphering.Fit"）
	Values    []float64 // 問題のある値
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("cytoprof: non-finite values detected in %s. Values: [%s]", e.Operation, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64) error {
	err := &NumericalInstabilityError{Operation: operation, Values: values}
	return errors.WithHint(errors.WithStack(err), "remove or impute missing values before fitting")
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// WithHint はエラーに利用者向けの対処方法を付与します。
func WithHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// GetAllHints はエラーチェーンに含まれる全てのヒントを返します。
func GetAllHints(err error) []string {
	return errors.GetAllHints(err)
}

// GetOneLineSource はエラーチェーンの最も内側のスタックから発生箇所を返します。
func GetOneLineSource(err error) (file string, line int, fn string, ok bool) {
	return errors.GetOneLineSource(err)
}

// AssertionFailedf は内部不変条件の違反を表すエラーを作成します。
// 入力ではなく実装のバグを示すため、呼び出し側はpanicに渡します。
func AssertionFailedf(format string, args ...interface{}) error {
	return errors.AssertionFailedf(format, args...)
}

// IsAssertionFailure はエラーが内部不変条件の違反かどうかを判定します。
func IsAssertionFailure(err error) bool {
	return errors.IsAssertionFailure(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異値分解に失敗した場合のエラーです。
	ErrSingularMatrix = New("singular value decomposition failed")
)
