// Package layouts は売掛金システムの物理ファイル定義 (CUSMAS / ARMAS / PAYTRAN / GLJRN) を提供します。
//
// 旧定義書のレコード長 (350 / 400 / 300 / 250) はフィールド幅の合計と一致していなかったため、
// ここでは幅の合計をレコード長として宣言しています。
package layouts

import "github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"

// All は組み込みレイアウトを取り込み順に返します。
func All() []fixedwidth.RecordLayout {
	return []fixedwidth.RecordLayout{Cusmas(), Armas(), Paytran(), Gljrn()}
}

// NewRegistry は組み込みレイアウトを登録済みの Registry を返します。
func NewRegistry() (*fixedwidth.Registry, error) {
	reg := fixedwidth.NewRegistry()
	for _, l := range All() {
		if err := reg.Register(l); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
