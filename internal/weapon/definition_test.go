package weapon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	d := &Definition{Name: "x", MagazineSize: 1, Range: 1}
	d.ApplyDefaults()

	assert.Equal(t, 1, d.BulletsPerFire)
	assert.Equal(t, 0.5, d.PenetrationDamageMultiplier)
	assert.Equal(t, FireAuto, d.FireMode)
	assert.Equal(t, ReloadMagazine, d.ReloadStyle)
	assert.Equal(t, 1.0, d.AimDamageMultiplier)
	assert.Equal(t, 1.0, d.Recoil.HipMultiplier)
	assert.Equal(t, 1.0, d.Recoil.AimMultiplier)
	require.NoError(t, d.Validate())
}

func TestValidate_CollectsProblems(t *testing.T) {
	d := &Definition{
		FireMode:    "burst",
		ReloadStyle: ReloadOverheat,
		Melee:       MeleeSettings{Enabled: true, Duration: 0.1, HitDelay: 0.2},
	}
	err := d.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"name is required",
		"magazineSize must be positive",
		"range must be positive",
		`unknown fireMode "burst"`,
		"heatPerShot must be positive",
		"melee.range must be positive",
		"melee.hitDelay must not exceed melee.duration",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestRuntime_CompleteReload(t *testing.T) {
	rt := NewRuntime(rifle())
	rt.BulletsLeft = 3
	rt.Reserve = 1
	rt.completeReload()
	assert.Equal(t, 4, rt.BulletsLeft)
	assert.Equal(t, 0, rt.Reserve)
	assert.False(t, rt.CanReload())
}

func TestRuntime_Overheat(t *testing.T) {
	def := rifle()
	def.ReloadStyle = ReloadOverheat
	def.HeatPerShot = 0.4
	rt := NewRuntime(def)

	assert.True(t, rt.MagazineFull())
	assert.True(t, rt.consume())
	assert.True(t, rt.consume())
	assert.True(t, rt.consume())
	assert.Equal(t, 1.0, rt.Heat)
	assert.False(t, rt.CanFire())
	assert.True(t, rt.Empty())
	assert.False(t, rt.consume())
	assert.Equal(t, 5, rt.BulletsLeft)

	rt.completeReload()
	assert.Equal(t, 0.0, rt.Heat)
}
