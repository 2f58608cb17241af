package comicdao

import (
	"math/big"
	"os"
)

func Touch(path string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
	}
	return nil
}

// Permille returns signed/total in parts per thousand, rounded down. A zero total returns zero.
func Permille(signed, total int64) int64 {
	if total <= 0 {
		return 0
	}
	if signed > total {
		LogCLI("Permille called with signed > total", 1)
	}
	s := new(big.Rat)
	s.SetFrac64(signed, total)
	m := new(big.Rat)
	m.SetInt64(1000)
	s = s.Mul(s, m)
	i := new(big.Int).Quo(s.Num(), s.Denom())
	return i.Int64()
}

// FractionOf returns total*permille/1000 rounded down, without overflowing int64 on the way.
func FractionOf(total, permille int64) int64 {
	t := big.NewInt(total)
	t.Mul(t, big.NewInt(permille))
	t.Quo(t, big.NewInt(1000))
	return t.Int64()
}
