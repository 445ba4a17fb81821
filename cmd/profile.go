package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/models"
)

// ProfileShow prints the signed-in user's profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	ctx, id, err := r.caller(ctx)
	if err != nil {
		return err
	}
	profile, err := r.auth.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}
	r.writeProfile(profile)
	return nil
}

// ProfileSet updates the settings subset of the profile: name, gender and age.
func (r *Runner) ProfileSet(ctx context.Context, cmd *cli.Command) error {
	ctx, id, err := r.caller(ctx)
	if err != nil {
		return err
	}

	current, err := r.auth.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	req := auth.SettingsRequest{FullName: current.FullName, Gender: current.Gender, Age: current.Age}
	if cmd.IsSet("name") {
		req.FullName = cmd.String("name")
	}
	if cmd.IsSet("gender") {
		req.Gender = cmd.String("gender")
	}
	if cmd.IsSet("age") {
		req.Age = cmd.String("age")
	}

	profile, err := r.auth.UpdateSettings(ctx, id, req)
	if err != nil {
		return err
	}
	r.logger.Info("profile updated", "user", id.ID)
	r.writePlain("✓ Profile updated\n\n")
	r.writeProfile(profile)
	return nil
}

func (r *Runner) writeProfile(p *models.UserProfile) {
	r.writePlainHeader("Profile")
	r.writePlain("Name:      %s\n", p.FullName)
	r.writePlain("Email:     %s\n", p.Email)
	r.writePlain("Languages: %s\n", strings.Join(p.Languages, ", "))
	if p.Gender != "" {
		r.writePlain("Gender:    %s\n", p.Gender)
	}
	if p.Age != "" {
		r.writePlain("Age:       %s\n", p.Age)
	}

	switch p.EducationLevel {
	case models.LevelSchool:
		r.writePlain("Education: School, class %s\n", p.Class)
	case models.LevelCollege:
		r.writePlain("Education: College, %s / %s", p.Field, p.Course)
		if p.Domain != "" {
			r.writePlain(" / %s", p.Domain)
		}
		r.writePlain("\n")
	}
	if len(p.Goals) > 0 {
		r.writePlain("Goals:     %s\n", strings.Join(p.Goals, ", "))
	}
	if len(p.LearningStyles) > 0 {
		r.writePlain("Styles:    %s\n", strings.Join(p.LearningStyles, ", "))
	}
	if !p.Onboarded {
		r.writePlainln("Onboarding is not finished. Run `modulearn onboard`.")
	}
}
